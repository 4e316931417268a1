package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"SolGuard/internal/model"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/pkg/snowflake"
)

const (
	// 评估互斥锁：scheduler tick 与用户打卡共用同一把锁
	evaluateLockKey = "scheduler:evaluate"
	evaluateLockTTL = 30 * time.Second

	// 打卡侧抢锁重试，抢不到说明 tick 正在评估，稍等即可
	checkInLockAttempts = 10
	checkInLockBackoff  = 50 * time.Millisecond

	escalationMarkTTL = 48 * time.Hour
)

// EvaluatorConfig 评估器行为开关
type EvaluatorConfig struct {
	// SatisfyAll 一次打卡满足该用户全部可满足窗口；false 时只满足
	// 截止最近的一个
	SatisfyAll bool
	// StaleAfter 超过截止这么久才发现的漏卡只记账不告警，
	// 避免长期离线后恢复时轰炸联系人
	StaleAfter time.Duration
	// ReminderLead 窗口打开后提前这么久（相对截止时刻）推送提醒，
	// 0 表示不提醒
	ReminderLead time.Duration
}

// Evaluator 漏卡判定状态机。
// 窗口生命周期 open → satisfied / missed → escalated，状态迁移全部
// 经由 CAS，配合单写者锁保证打卡和超时判定不会互相覆盖。
type Evaluator struct {
	rules     RuleStore
	windows   WindowStore
	ledger    Ledger
	publisher EscalationPublisher
	locks     Locker
	marks     Marker
	cfg       EvaluatorConfig
	log       *zap.Logger

	// 账本事件 ID 生成，测试可替换
	newID func() (int64, error)
	// 打卡抢锁等待，测试可替换
	sleep func(time.Duration)
}

func NewEvaluator(
	rules RuleStore,
	windows WindowStore,
	ledger Ledger,
	publisher EscalationPublisher,
	locks Locker,
	marks Marker,
	cfg EvaluatorConfig,
	log *zap.Logger,
) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		rules:     rules,
		windows:   windows,
		ledger:    ledger,
		publisher: publisher,
		locks:     locks,
		marks:     marks,
		cfg:       cfg,
		log:       log,
		newID:     snowflake.NextID,
		sleep:     time.Sleep,
	}
}

// Escalation 一次告警投递的结果
type Escalation struct {
	WindowID  int64
	RuleID    int64
	UserID    int64
	Published bool
}

// Evaluate 执行一轮评估：到点开窗、超时判漏、投递告警。
// 持锁阶段只做状态迁移和记账；MQ 投递放在锁外，投递慢或失败
// 不会拖住下一轮评估。锁被占用时直接跳过本轮。
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) ([]Escalation, error) {
	ok, err := e.locks.TryLock(ctx, evaluateLockKey, evaluateLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire evaluate lock: %w", err)
	}
	if !ok {
		e.log.Debug("evaluate already running, skipping tick")
		return nil, nil
	}

	opened, toEscalate, labels, err := e.evaluateLocked(ctx, now)

	if unlockErr := e.locks.Unlock(ctx, evaluateLockKey); unlockErr != nil {
		e.log.Warn("failed to release evaluate lock", zap.Error(unlockErr))
	}
	if err != nil {
		return nil, err
	}

	e.publishReminders(ctx, now, opened, labels)
	return e.escalate(ctx, now, toEscalate, labels), nil
}

// evaluateLocked 持锁阶段：开窗 + 超时判漏。返回本轮新开的窗口和
// 待告警的 missed 窗口（含上一轮崩溃残留）。
func (e *Evaluator) evaluateLocked(ctx context.Context, now time.Time) (opened, toEscalate []*model.CheckInWindow, labels map[int64]string, err error) {
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list enabled rules: %w", err)
	}
	labels = make(map[int64]string, len(rules))
	for _, r := range rules {
		labels[r.ID] = r.Label
	}

	open, err := e.windows.ListOpen(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list open windows: %w", err)
	}
	hasOpen := make(map[int64]bool, len(open))
	for _, w := range open {
		hasOpen[w.RuleID] = true
	}

	// 到点开窗。规则在开窗时即推进 NextOpenAt（以本次 opensAt 为种子），
	// 叠加"每规则至多一个 open 窗口"约束，重复评估不会重复开窗
	for _, rule := range rules {
		if rule.NextOpenAt == nil || rule.NextOpenAt.After(now) || hasOpen[rule.ID] {
			continue
		}
		opensAt := *rule.NextOpenAt
		w := &model.CheckInWindow{
			RuleID:     rule.ID,
			UserID:     rule.UserID,
			OpensAt:    opensAt,
			DeadlineAt: opensAt.Add(rule.Grace()),
			State:      model.WindowStateOpen,
		}
		if err := e.windows.Create(ctx, w); err != nil {
			return nil, nil, nil, fmt.Errorf("open window for rule %d: %w", rule.ID, err)
		}
		next, nerr := NextOccurrence(rule, opensAt)
		if nerr != nil {
			// 空 weekday 集合的规则在创建时已被拒绝，这里只可能是
			// 脏数据，记日志跳过推进，不让一条坏规则卡死整轮评估
			e.log.Error("cannot schedule next occurrence",
				zap.Int64("rule_id", rule.ID), zap.Error(nerr))
		} else if err := e.rules.AdvanceNextOpen(ctx, rule.ID, next); err != nil {
			return nil, nil, nil, fmt.Errorf("advance rule %d: %w", rule.ID, err)
		}
		e.log.Info("check-in window opened",
			zap.Int64("rule_id", rule.ID),
			zap.Int64("user_id", rule.UserID),
			zap.Time("opens_at", w.OpensAt),
			zap.Time("deadline_at", w.DeadlineAt))
		open = append(open, w)
		opened = append(opened, w)
		hasOpen[rule.ID] = true
	}

	// 超时判漏。同一轮里刚开的窗口也参与，长时间停机后恢复时
	// open → missed → escalated 可以在单轮内走完
	for _, w := range open {
		if !now.After(w.DeadlineAt) {
			continue
		}
		stale := e.cfg.StaleAfter > 0 && now.Sub(w.DeadlineAt) > e.cfg.StaleAfter
		ok, err := e.windows.Transition(ctx, w.ID, model.WindowStateOpen, model.WindowStateMissed, now)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mark window %d missed: %w", w.ID, err)
		}
		if !ok {
			// 打卡抢先一步把窗口置为 satisfied
			continue
		}
		if err := e.appendEvent(ctx, w, model.CheckInEventMissed, now); err != nil {
			return nil, nil, nil, err
		}
		e.log.Info("check-in window missed",
			zap.Int64("window_id", w.ID),
			zap.Int64("user_id", w.UserID),
			zap.Time("deadline_at", w.DeadlineAt),
			zap.Bool("stale", stale))
		if stale {
			// 长期离线补偿：只记账，窗口直接置为 escalated 终态，
			// 不向联系人投递告警
			if _, err := e.windows.Transition(ctx, w.ID, model.WindowStateMissed, model.WindowStateEscalated, now); err != nil {
				return nil, nil, nil, fmt.Errorf("close stale window %d: %w", w.ID, err)
			}
			continue
		}
		toEscalate = append(toEscalate, w)
	}

	// 上一轮评估可能在 missed 之后、escalated 之前崩溃，把残留的
	// missed 窗口捞回来补投。去重标记保证不会重复告警
	missed, err := e.windows.ListMissed(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list missed windows: %w", err)
	}
	seen := make(map[int64]bool, len(toEscalate))
	for _, w := range toEscalate {
		seen[w.ID] = true
	}
	for _, w := range missed {
		if seen[w.ID] {
			continue
		}
		if e.cfg.StaleAfter > 0 && now.Sub(w.DeadlineAt) > e.cfg.StaleAfter {
			if _, err := e.windows.Transition(ctx, w.ID, model.WindowStateMissed, model.WindowStateEscalated, now); err != nil {
				return nil, nil, nil, fmt.Errorf("close stale window %d: %w", w.ID, err)
			}
			continue
		}
		toEscalate = append(toEscalate, w)
	}
	return opened, toEscalate, labels, nil
}

// escalate 锁外阶段：投递告警并把窗口推进到 escalated 终态。
// 投递失败窗口同样进入 escalated —— 告警语义是"至多一次尝试"，
// 宁可漏发也不重复轰炸联系人；失败由日志和指标暴露。
func (e *Evaluator) escalate(ctx context.Context, now time.Time, windows []*model.CheckInWindow, labels map[int64]string) []Escalation {
	results := make([]Escalation, 0, len(windows))
	for _, w := range windows {
		markKey := fmt.Sprintf("escalation:window:%d", w.ID)
		fresh, err := e.marks.TryMark(ctx, markKey, escalationMarkTTL)
		if err != nil {
			// 标记不可用时继续投递：CAS 终态迁移仍能挡住同进程重复，
			// 跨进程极端情况下宁可多查一次也不能漏告警
			e.log.Warn("escalation mark unavailable, proceeding",
				zap.Int64("window_id", w.ID), zap.Error(err))
			fresh = true
		}
		published := false
		if fresh {
			id, err := e.newID()
			if err != nil {
				e.log.Error("failed to generate escalation message id", zap.Error(err))
				continue
			}
			msg := model.EscalationMessage{
				MessageID:  fmt.Sprintf("%d", id),
				WindowID:   w.ID,
				RuleID:     w.RuleID,
				RuleLabel:  labels[w.RuleID],
				UserID:     w.UserID,
				OpensAt:    w.OpensAt.Format(time.RFC3339),
				DeadlineAt: w.DeadlineAt.Format(time.RFC3339),
			}
			if err := e.publisher.PublishEscalation(msg); err != nil {
				e.log.Error("failed to publish escalation",
					zap.Int64("window_id", w.ID), zap.Error(err))
			} else {
				published = true
			}
		}
		ok, err := e.windows.Transition(ctx, w.ID, model.WindowStateMissed, model.WindowStateEscalated, now)
		if err != nil {
			e.log.Error("failed to close escalated window",
				zap.Int64("window_id", w.ID), zap.Error(err))
			continue
		}
		if ok {
			results = append(results, Escalation{
				WindowID:  w.ID,
				RuleID:    w.RuleID,
				UserID:    w.UserID,
				Published: published,
			})
		}
	}
	return results
}

// publishReminders 为新开的窗口投递延迟提醒消息，到点由 worker 推送。
// 提醒是尽力而为，失败只记日志。
func (e *Evaluator) publishReminders(ctx context.Context, now time.Time, opened []*model.CheckInWindow, labels map[int64]string) {
	if e.cfg.ReminderLead <= 0 {
		return
	}
	for _, w := range opened {
		remindAt := w.DeadlineAt.Add(-e.cfg.ReminderLead)
		delay := remindAt.Sub(now)
		if delay < 0 {
			delay = 0
		}
		id, err := e.newID()
		if err != nil {
			e.log.Error("failed to generate reminder message id", zap.Error(err))
			continue
		}
		msg := model.CheckInReminderMessage{
			MessageID:    fmt.Sprintf("%d", id),
			WindowID:     w.ID,
			RuleID:       w.RuleID,
			RuleLabel:    labels[w.RuleID],
			UserID:       w.UserID,
			DeadlineAt:   w.DeadlineAt.Format(time.RFC3339),
			DelaySeconds: int(delay / time.Second),
		}
		if err := e.publisher.PublishReminder(msg); err != nil {
			e.log.Warn("failed to publish check-in reminder",
				zap.Int64("window_id", w.ID), zap.Error(err))
		}
	}
}

// RecordCheckIn 用户"我很好"打卡。满足窗口要求 now 落在
// [opensAt, deadlineAt] 内；没有可满足窗口时打卡仍然记账
// （自发打卡），返回本次满足的窗口 ID 列表。
func (e *Evaluator) RecordCheckIn(ctx context.Context, userID int64, now time.Time) ([]int64, error) {
	locked := false
	for i := 0; i < checkInLockAttempts; i++ {
		ok, err := e.locks.TryLock(ctx, evaluateLockKey, evaluateLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire check-in lock: %w", err)
		}
		if ok {
			locked = true
			break
		}
		e.sleep(checkInLockBackoff)
	}
	if !locked {
		return nil, pkgerrors.StoreUnavailable
	}
	defer func() {
		if err := e.locks.Unlock(ctx, evaluateLockKey); err != nil {
			e.log.Warn("failed to release check-in lock", zap.Error(err))
		}
	}()

	open, err := e.windows.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list open windows: %w", err)
	}

	eligible := make([]*model.CheckInWindow, 0, len(open))
	for _, w := range open {
		if !now.Before(w.OpensAt) && !now.After(w.DeadlineAt) {
			eligible = append(eligible, w)
		}
	}
	// 截止最近的排前面；非 satisfy-all 模式只满足第一个
	for i := 1; i < len(eligible); i++ {
		for j := i; j > 0 && eligible[j].DeadlineAt.Before(eligible[j-1].DeadlineAt); j-- {
			eligible[j], eligible[j-1] = eligible[j-1], eligible[j]
		}
	}
	if !e.cfg.SatisfyAll && len(eligible) > 1 {
		eligible = eligible[:1]
	}

	satisfied := make([]int64, 0, len(eligible))
	for _, w := range eligible {
		ok, err := e.windows.Transition(ctx, w.ID, model.WindowStateOpen, model.WindowStateSatisfied, now)
		if err != nil {
			return nil, fmt.Errorf("satisfy window %d: %w", w.ID, err)
		}
		if ok {
			satisfied = append(satisfied, w.ID)
		}
	}

	ev := &model.CheckInEvent{
		UserID:     userID,
		Status:     model.CheckInEventCheckedIn,
		OccurredAt: now,
	}
	if len(eligible) > 0 && len(satisfied) > 0 {
		ev.RuleID = &eligible[0].RuleID
		ev.WindowID = &eligible[0].ID
	}
	id, err := e.newID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	ev.PublicID = id
	if err := e.ledger.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append check-in event: %w", err)
	}

	e.log.Info("check-in recorded",
		zap.Int64("user_id", userID),
		zap.Int("satisfied_windows", len(satisfied)))
	return satisfied, nil
}

func (e *Evaluator) appendEvent(ctx context.Context, w *model.CheckInWindow, status model.CheckInEventStatus, at time.Time) error {
	id, err := e.newID()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	ev := &model.CheckInEvent{
		PublicID:   id,
		UserID:     w.UserID,
		RuleID:     &w.RuleID,
		WindowID:   &w.ID,
		Status:     status,
		OccurredAt: at,
	}
	if err := e.ledger.Append(ctx, ev); err != nil {
		return fmt.Errorf("append %s event: %w", status, err)
	}
	return nil
}
