package queue

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"SolGuard/internal/model"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/snowflake"
	"SolGuard/storage/mq"
)

// PublishEscalation 发布漏卡告警消息，worker 消费后给紧急联系人发短信
func PublishEscalation(msg model.EscalationMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("window_id", msg.WindowID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("escalation_%d", id)
	}

	err := mq.PublishMessage(
		mq.EscalationExchange,
		mq.EscalationRoute,
		msg,
	)

	if err != nil {
		logger.Logger.Error("Failed to publish escalation message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("window_id", msg.WindowID),
			zap.Int64("user_id", msg.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published escalation message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("window_id", msg.WindowID),
		zap.Int64("user_id", msg.UserID),
	)

	return nil
}

// PublishCheckInReminder 发布打卡提醒消息（延迟消息，到点由 worker 推送）
func PublishCheckInReminder(msg model.CheckInReminderMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("window_id", msg.WindowID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("ci_reminder_%d", id)
	}

	delay := time.Duration(msg.DelaySeconds) * time.Second
	if delay > 24*time.Hour {
		// 插件对延迟消息有 24 小时上限，提醒都在当天窗口内，不该走到这里
		return fmt.Errorf("delay %v exceeds 24 hours limit", delay)
	}

	err := mq.PublishDelayedMessage(
		mq.DelayedExchange,
		mq.ReminderRoute,
		delay,
		msg,
	)

	if err != nil {
		logger.Logger.Error("Failed to publish check-in reminder message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("window_id", msg.WindowID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published check-in reminder message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("window_id", msg.WindowID),
		zap.Duration("delay", delay),
	)

	return nil
}

// Producer 注入给评估器的投递实现
type Producer struct{}

func (Producer) PublishEscalation(msg model.EscalationMessage) error {
	return PublishEscalation(msg)
}

func (Producer) PublishReminder(msg model.CheckInReminderMessage) error {
	return PublishCheckInReminder(msg)
}
