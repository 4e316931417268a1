package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"SolGuard/internal/cache"
	"SolGuard/internal/model"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/pkg/logger"
	"SolGuard/storage/mq"
)

// NotificationService worker 侧的通知服务边界
type NotificationService interface {
	// DispatchEscalation 给用户的紧急联系人发告警短信
	DispatchEscalation(ctx context.Context, msg model.EscalationMessage) error
	// SendCheckInReminder 给用户本人发打卡提醒
	SendCheckInReminder(ctx context.Context, msg model.CheckInReminderMessage) error
}

var notificationService NotificationService

// SetNotificationService 设置通知服务（在 worker 启动时调用）
func SetNotificationService(s NotificationService) {
	notificationService = s
}

// StartEscalationConsumer 启动漏卡告警消费者
func StartEscalationConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.EscalationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal escalation message: %w", err)
		}

		// 幂等性检查：SETNX 原子性地检查并标记消息正在处理
		processed, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 检查失败时继续处理，宁可重复也不能漏告警
		} else if !processed {
			return &pkgerrors.SkipMessageError{
				Reason: fmt.Sprintf("Message %s already processed", msg.MessageID),
			}
		}

		logger.Logger.Info("Processing escalation",
			zap.String("message_id", msg.MessageID),
			zap.Int64("window_id", msg.WindowID),
			zap.Int64("user_id", msg.UserID),
		)

		if notificationService == nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("notification service not initialized")
		}

		if err := notificationService.DispatchEscalation(ctx, msg); err != nil {
			var skip *pkgerrors.SkipMessageError
			if errors.As(err, &skip) {
				if markErr := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); markErr != nil {
					logger.Logger.Warn("Failed to mark skipped message as processed",
						zap.String("message_id", msg.MessageID),
						zap.Error(markErr),
					)
				}
				return err
			}

			// 其他错误：取消标记，允许重试
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to dispatch escalation: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.EscalationQueue,
		ConsumerTag:   "escalation_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// StartReminderConsumer 启动打卡提醒消费者
func StartReminderConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.CheckInReminderMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal check-in reminder message: %w", err)
		}

		processed, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		} else if !processed {
			return &pkgerrors.SkipMessageError{
				Reason: fmt.Sprintf("Message %s already processed", msg.MessageID),
			}
		}

		logger.Logger.Info("Processing check-in reminder",
			zap.String("message_id", msg.MessageID),
			zap.Int64("window_id", msg.WindowID),
			zap.Int64("user_id", msg.UserID),
		)

		if notificationService == nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("notification service not initialized")
		}

		if err := notificationService.SendCheckInReminder(ctx, msg); err != nil {
			var skip *pkgerrors.SkipMessageError
			if errors.As(err, &skip) {
				if markErr := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); markErr != nil {
					logger.Logger.Warn("Failed to mark skipped message as processed",
						zap.String("message_id", msg.MessageID),
						zap.Error(markErr),
					)
				}
				return err
			}

			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to send check-in reminder: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.ReminderQueue,
		ConsumerTag:   "checkin_reminder_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// StartAllConsumers 启动所有消费者（worker 启动时调用），阻塞直到全部退出
func StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"escalation", StartEscalationConsumer},
		{"checkin_reminder", StartReminderConsumer},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("consumer_name", name),
			)

			if err := consumer(ctx); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.consumer)
	}

	wg.Wait()
}
