package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SolGuard/config"
	"SolGuard/internal/cache"
	"SolGuard/internal/model"
	"SolGuard/internal/repository"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/metrics"
	"SolGuard/pkg/sms"
	"SolGuard/pkg/snowflake"
	"SolGuard/utils"
)

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

func GetNotificationService() *NotificationService {
	notificationOnce.Do(func() {
		notificationService = &NotificationService{
			contacts: repository.Contacts(),
			windows:  repository.Windows(),
			events:   repository.Events(),
			users:    repository.Users(),
		}
	})

	return notificationService
}

type NotificationService struct {
	contacts *repository.ContactRepo
	windows  *repository.WindowRepo
	events   *repository.EventRepo
	users    *repository.UserRepo
}

// DispatchEscalation 漏卡告警：按主联系人优先的顺序给用户的紧急联系人
// 逐个发短信，每次尝试记一条 ContactAttempt，最后追加一条 alert_sent
// 账目。部分失败不重投（尝试型语义），全部失败返回错误走 MQ 重试。
func (s *NotificationService) DispatchEscalation(ctx context.Context, msg model.EscalationMessage) error {
	contacts, err := s.contacts.ListByUser(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}
	if len(contacts) == 0 {
		// 没配联系人的用户只记账不告警，消息直接 ack
		logger.Logger.Warn("escalation skipped, user has no contacts",
			zap.Int64("user_id", msg.UserID),
			zap.Int64("window_id", msg.WindowID),
		)
		return &pkgerrors.SkipMessageError{Reason: "no contacts configured"}
	}

	nickname := "The user"
	if user, err := s.users.GetByID(ctx, msg.UserID); err == nil && user.Nickname != "" {
		nickname = user.Nickname
	}

	deadline := msg.DeadlineAt
	if t, err := time.Parse(time.RFC3339, msg.DeadlineAt); err == nil {
		deadline = t.Format("2006-01-02 15:04")
	}

	templateParam, _ := json.Marshal(map[string]string{
		"name":     nickname,
		"label":    msg.RuleLabel,
		"deadline": deadline,
	})

	succeeded := 0
	for _, contact := range contacts {
		if err := s.alertContact(ctx, msg.WindowID, contact, string(templateParam)); err == nil {
			succeeded++
		}
	}

	s.appendAlertEvent(ctx, msg)

	logger.Logger.Info("escalation dispatched",
		zap.Int64("user_id", msg.UserID),
		zap.Int64("window_id", msg.WindowID),
		zap.Int("contacts", len(contacts)),
		zap.Int("succeeded", succeeded),
	)

	if succeeded == 0 {
		return fmt.Errorf("%w: all %d contact attempts failed", pkgerrors.DispatchFailed, len(contacts))
	}
	return nil
}

func (s *NotificationService) alertContact(ctx context.Context, windowID int64, contact *model.Contact, templateParam string) error {
	attempt := &model.ContactAttempt{
		WindowID:         windowID,
		ContactID:        contact.ID,
		ContactPhoneHash: contact.PhoneHash,
		Channel:          "sms",
		Status:           model.ContactAttemptStatusPending,
		AttemptedAt:      time.Now(),
	}

	phone, err := utils.DecryptPhone(contact.PhoneCipher)
	if err == nil {
		start := time.Now()
		err = sms.SendSingle(ctx, phone, config.Cfg.SMSSignName, config.Cfg.SMSAlertTemplate, templateParam)
		if m := metrics.GetMetrics(); m != nil {
			m.RecordSMSSent(ctx, config.Cfg.SMSAlertTemplate, time.Since(start).Seconds(), err == nil)
		}
	}

	if err != nil {
		attempt.Status = model.ContactAttemptStatusFailed
		respMsg := err.Error()
		if len(respMsg) > 255 {
			respMsg = respMsg[:255]
		}
		attempt.ResponseMessage = &respMsg
	} else {
		attempt.Status = model.ContactAttemptStatusSuccess
	}

	if createErr := s.contacts.CreateAttempt(ctx, attempt); createErr != nil {
		logger.Logger.Error("failed to record contact attempt",
			zap.Int64("window_id", windowID),
			zap.Int64("contact_id", contact.ID),
			zap.Error(createErr),
		)
	}

	return err
}

// appendAlertEvent alert_sent 是尝试型账目：只要走到了投递这一步就记，
// 不保证联系人真的收到了短信
func (s *NotificationService) appendAlertEvent(ctx context.Context, msg model.EscalationMessage) {
	publicID, err := snowflake.NextID()
	if err != nil {
		logger.Logger.Error("failed to generate event id", zap.Error(err))
		return
	}

	ruleID := msg.RuleID
	windowID := msg.WindowID
	ev := &model.CheckInEvent{
		PublicID:   publicID,
		UserID:     msg.UserID,
		RuleID:     &ruleID,
		WindowID:   &windowID,
		Status:     model.CheckInEventAlertSent,
		OccurredAt: time.Now(),
	}

	if err := s.events.Append(ctx, ev); err != nil {
		logger.Logger.Error("failed to append alert_sent event",
			zap.Int64("window_id", msg.WindowID),
			zap.Error(err),
		)
	}
}

// SendCheckInReminder 截止前提醒：窗口已不是 open（用户打过卡了，或者
// 已经漏卡升级）就跳过，非付费用户受月度条数限制。
func (s *NotificationService) SendCheckInReminder(ctx context.Context, msg model.CheckInReminderMessage) error {
	window, err := s.windows.GetByID(ctx, msg.WindowID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &pkgerrors.SkipMessageError{Reason: "window no longer exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to get window: %w", err)
	}
	if window.State != model.WindowStateOpen {
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("window state is %s", window.State)}
	}

	user, err := s.users.GetByID(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.PhoneCipher == "" {
		return &pkgerrors.SkipMessageError{Reason: "user has no phone configured"}
	}

	if !user.Premium {
		allowed, count, err := cache.CheckMonthlyReminderLimit(ctx, user.ID)
		if err != nil {
			logger.Logger.Warn("failed to check monthly reminder limit",
				zap.Int64("user_id", user.ID),
				zap.Error(err),
			)
		}
		if !allowed {
			logger.Logger.Info("reminder skipped, monthly limit reached",
				zap.Int64("user_id", user.ID),
				zap.Int("count", count),
			)
			return &pkgerrors.SkipMessageError{Reason: "monthly reminder limit reached"}
		}
	}

	phone, err := utils.DecryptPhone(user.PhoneCipher)
	if err != nil {
		return &pkgerrors.SkipMessageError{Reason: "failed to decrypt user phone"}
	}

	deadline := msg.DeadlineAt
	if t, err := time.Parse(time.RFC3339, msg.DeadlineAt); err == nil {
		if loc, locErr := time.LoadLocation(user.Timezone); locErr == nil {
			t = t.In(loc)
		}
		deadline = t.Format("15:04")
	}

	templateParam, _ := json.Marshal(map[string]string{
		"label":    msg.RuleLabel,
		"deadline": deadline,
	})

	start := time.Now()
	err = sms.SendSingle(ctx, phone, config.Cfg.SMSSignName, config.Cfg.SMSReminderTemplate, string(templateParam))
	if m := metrics.GetMetrics(); m != nil {
		m.RecordSMSSent(ctx, config.Cfg.SMSReminderTemplate, time.Since(start).Seconds(), err == nil)
	}
	if err != nil {
		return fmt.Errorf("failed to send reminder SMS: %w", err)
	}

	if !user.Premium {
		monthKey := time.Now().Format("2006-01")
		if err := cache.IncrementMonthlyReminderCount(ctx, user.ID, monthKey); err != nil {
			logger.Logger.Warn("failed to increment monthly reminder count",
				zap.Int64("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	logger.Logger.Info("check-in reminder sent",
		zap.Int64("user_id", user.ID),
		zap.Int64("window_id", msg.WindowID),
	)

	return nil
}
