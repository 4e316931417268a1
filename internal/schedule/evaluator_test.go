package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"SolGuard/internal/model"
	pkgerrors "SolGuard/pkg/errors"
)

// ---- 内存假件 ----

type fakeRuleStore struct {
	rules   []*model.Schedule
	listErr error
}

func (s *fakeRuleStore) ListEnabled(ctx context.Context) ([]*model.Schedule, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*model.Schedule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRuleStore) AdvanceNextOpen(ctx context.Context, ruleID int64, next time.Time) error {
	for _, r := range s.rules {
		if r.ID == ruleID {
			n := next
			r.NextOpenAt = &n
			return nil
		}
	}
	return fmt.Errorf("rule %d not found", ruleID)
}

type fakeWindowStore struct {
	nextID  int64
	order   []int64
	windows map[int64]*model.CheckInWindow
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{windows: make(map[int64]*model.CheckInWindow)}
}

func (s *fakeWindowStore) list(match func(*model.CheckInWindow) bool) []*model.CheckInWindow {
	var out []*model.CheckInWindow
	for _, id := range s.order {
		if w := s.windows[id]; match(w) {
			out = append(out, w)
		}
	}
	return out
}

func (s *fakeWindowStore) ListOpen(ctx context.Context) ([]*model.CheckInWindow, error) {
	return s.list(func(w *model.CheckInWindow) bool { return w.State == model.WindowStateOpen }), nil
}

func (s *fakeWindowStore) ListOpenByUser(ctx context.Context, userID int64) ([]*model.CheckInWindow, error) {
	return s.list(func(w *model.CheckInWindow) bool {
		return w.State == model.WindowStateOpen && w.UserID == userID
	}), nil
}

func (s *fakeWindowStore) ListMissed(ctx context.Context) ([]*model.CheckInWindow, error) {
	return s.list(func(w *model.CheckInWindow) bool { return w.State == model.WindowStateMissed }), nil
}

func (s *fakeWindowStore) Create(ctx context.Context, w *model.CheckInWindow) error {
	s.nextID++
	w.ID = s.nextID
	s.order = append(s.order, w.ID)
	s.windows[w.ID] = w
	return nil
}

func (s *fakeWindowStore) Transition(ctx context.Context, windowID int64, from, to model.WindowState, at time.Time) (bool, error) {
	w, ok := s.windows[windowID]
	if !ok || w.State != from {
		return false, nil
	}
	w.State = to
	switch to {
	case model.WindowStateSatisfied:
		t := at
		w.SatisfiedAt = &t
	case model.WindowStateEscalated:
		t := at
		w.EscalatedAt = &t
	}
	return true, nil
}

type fakeLedger struct {
	events    []*model.CheckInEvent
	appendErr error
}

func (l *fakeLedger) Append(ctx context.Context, ev *model.CheckInEvent) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.events = append(l.events, ev)
	return nil
}

func (l *fakeLedger) byStatus(status model.CheckInEventStatus) []*model.CheckInEvent {
	var out []*model.CheckInEvent
	for _, ev := range l.events {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out
}

type fakePublisher struct {
	escalations []model.EscalationMessage
	reminders   []model.CheckInReminderMessage
	failPublish bool
}

func (p *fakePublisher) PublishEscalation(msg model.EscalationMessage) error {
	p.escalations = append(p.escalations, msg)
	if p.failPublish {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *fakePublisher) PublishReminder(msg model.CheckInReminderMessage) error {
	p.reminders = append(p.reminders, msg)
	return nil
}

type fakeLocker struct {
	held      map[string]bool
	denyCount int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.denyCount > 0 {
		l.denyCount--
		return false, nil
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key string) error {
	delete(l.held, key)
	return nil
}

type fakeMarker struct {
	marked map[string]bool
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{marked: make(map[string]bool)}
}

func (m *fakeMarker) TryMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.marked[key] {
		return false, nil
	}
	m.marked[key] = true
	return true, nil
}

type fixture struct {
	rules     *fakeRuleStore
	windows   *fakeWindowStore
	ledger    *fakeLedger
	publisher *fakePublisher
	locks     *fakeLocker
	marks     *fakeMarker
	eval      *Evaluator
}

func newFixture(cfg EvaluatorConfig) *fixture {
	f := &fixture{
		rules:     &fakeRuleStore{},
		windows:   newFakeWindowStore(),
		ledger:    &fakeLedger{},
		publisher: &fakePublisher{},
		locks:     newFakeLocker(),
		marks:     newFakeMarker(),
	}
	f.eval = NewEvaluator(f.rules, f.windows, f.ledger, f.publisher, f.locks, f.marks, cfg, zap.NewNop())
	var seq int64
	f.eval.newID = func() (int64, error) {
		seq++
		return seq, nil
	}
	f.eval.sleep = func(time.Duration) {}
	return f
}

func (f *fixture) addRule(id, userID int64, label, timeOfDay string, graceMinutes int, nextOpen time.Time, weekdays ...int) *model.Schedule {
	r := &model.Schedule{
		PublicID:     id,
		UserID:       userID,
		Label:        label,
		TimeOfDay:    timeOfDay,
		Weekdays:     model.Weekdays(weekdays),
		Enabled:      true,
		GraceMinutes: graceMinutes,
		NextOpenAt:   &nextOpen,
	}
	r.ID = id
	f.rules.rules = append(f.rules.rules, r)
	return r
}

func (f *fixture) addWindow(ruleID, userID int64, opensAt, deadlineAt time.Time, state model.WindowState) *model.CheckInWindow {
	w := &model.CheckInWindow{
		RuleID:     ruleID,
		UserID:     userID,
		OpensAt:    opensAt,
		DeadlineAt: deadlineAt,
		State:      state,
	}
	_ = f.windows.Create(context.Background(), w)
	return w
}

// 2026-08-31 周一
var monday8 = time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

// ---- 测试 ----

func TestEvaluateOpensDueWindow(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	rule := f.addRule(1, 100, "morning", "08:00", 30, monday8, 1, 3, 5)

	escalated, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, escalated)

	open, _ := f.windows.ListOpen(context.Background())
	require.Len(t, open, 1)
	assert.Equal(t, monday8, open[0].OpensAt)
	assert.Equal(t, monday8.Add(30*time.Minute), open[0].DeadlineAt)

	// 规则调度状态以本次 opensAt 为种子推进到下一个允许日
	require.NotNil(t, rule.NextOpenAt)
	assert.Equal(t, time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC), *rule.NextOpenAt)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addRule(1, 100, "morning", "08:00", 30, monday8, 1, 2, 3, 4, 5)

	now := monday8.Add(time.Minute)
	for i := 0; i < 3; i++ {
		_, err := f.eval.Evaluate(context.Background(), now)
		require.NoError(t, err)
	}

	open, _ := f.windows.ListOpen(context.Background())
	assert.Len(t, open, 1, "repeated evaluation must not open duplicate windows")
}

func TestEvaluateSkipsNotYetDueAndDisabled(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addRule(1, 100, "later", "08:00", 30, monday8.Add(time.Hour), 1)
	disabled := f.addRule(2, 100, "off", "08:00", 30, monday8, 1)
	disabled.Enabled = false

	_, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Minute))
	require.NoError(t, err)

	open, _ := f.windows.ListOpen(context.Background())
	assert.Empty(t, open)
}

// 停机恢复场景：一次评估内走完 open → missed → escalated
func TestEvaluateMissAndEscalateInSingleRound(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addRule(1, 100, "morning", "08:00", 0, monday8, 1)

	escalated, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.True(t, escalated[0].Published)
	assert.Equal(t, int64(100), escalated[0].UserID)

	w := f.windows.windows[escalated[0].WindowID]
	assert.Equal(t, model.WindowStateEscalated, w.State)
	require.NotNil(t, w.EscalatedAt)

	missedEvents := f.ledger.byStatus(model.CheckInEventMissed)
	require.Len(t, missedEvents, 1)
	assert.Equal(t, int64(100), missedEvents[0].UserID)

	require.Len(t, f.publisher.escalations, 1)
	assert.Equal(t, "morning", f.publisher.escalations[0].RuleLabel)
	assert.Equal(t, monday8.Format(time.RFC3339), f.publisher.escalations[0].OpensAt)
}

func TestCheckInSatisfiesWindow(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addRule(1, 100, "morning", "08:00", 30, monday8, 1)

	_, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Minute))
	require.NoError(t, err)

	satisfied, err := f.eval.RecordCheckIn(context.Background(), 100, monday8.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, satisfied, 1)

	w := f.windows.windows[satisfied[0]]
	assert.Equal(t, model.WindowStateSatisfied, w.State)
	require.NotNil(t, w.SatisfiedAt)

	events := f.ledger.byStatus(model.CheckInEventCheckedIn)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].WindowID)
	assert.Equal(t, satisfied[0], *events[0].WindowID)

	// 截止之后再评估：窗口已满足，不得误判漏卡
	escalated, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, escalated)
	assert.Empty(t, f.ledger.byStatus(model.CheckInEventMissed))
	assert.Empty(t, f.publisher.escalations)
}

func TestCheckInWithoutOpenWindowStillRecorded(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})

	satisfied, err := f.eval.RecordCheckIn(context.Background(), 100, monday8)
	require.NoError(t, err)
	assert.Empty(t, satisfied)

	events := f.ledger.byStatus(model.CheckInEventCheckedIn)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].WindowID)
	assert.Nil(t, events[0].RuleID)
}

func TestCheckInBeforeOpensAtDoesNotSatisfy(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addWindow(1, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateOpen)

	satisfied, err := f.eval.RecordCheckIn(context.Background(), 100, monday8.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, satisfied)

	open, _ := f.windows.ListOpen(context.Background())
	assert.Len(t, open, 1)
}

func TestLateCheckInDoesNotReviveMissedWindow(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	w := f.addWindow(1, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateMissed)

	satisfied, err := f.eval.RecordCheckIn(context.Background(), 100, monday8.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, satisfied)
	assert.Equal(t, model.WindowStateMissed, w.State)

	// 迟到的打卡只进台账，不改窗口状态
	events := f.ledger.byStatus(model.CheckInEventCheckedIn)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].WindowID)
}

func TestCheckInSatisfyAllWindows(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addWindow(1, 100, monday8, monday8.Add(time.Hour), model.WindowStateOpen)
	f.addWindow(2, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateOpen)
	// 其他用户的窗口不受影响
	other := f.addWindow(3, 200, monday8, monday8.Add(time.Hour), model.WindowStateOpen)

	satisfied, err := f.eval.RecordCheckIn(context.Background(), 100, monday8.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Len(t, satisfied, 2)
	assert.Equal(t, model.WindowStateOpen, other.State)
}

func TestCheckInNearestDeadlineOnly(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: false})
	far := f.addWindow(1, 100, monday8, monday8.Add(time.Hour), model.WindowStateOpen)
	near := f.addWindow(2, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateOpen)

	satisfied, err := f.eval.RecordCheckIn(context.Background(), 100, monday8.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, satisfied, 1)
	assert.Equal(t, near.ID, satisfied[0])
	assert.Equal(t, model.WindowStateSatisfied, near.State)
	assert.Equal(t, model.WindowStateOpen, far.State)
}

func TestEscalationDeduplicated(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	w := f.addWindow(1, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateMissed)
	f.marks.marked[fmt.Sprintf("escalation:window:%d", w.ID)] = true

	escalated, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Hour))
	require.NoError(t, err)

	// 标记已存在：不再投递，但窗口照常收敛到终态
	assert.Empty(t, f.publisher.escalations)
	require.Len(t, escalated, 1)
	assert.False(t, escalated[0].Published)
	assert.Equal(t, model.WindowStateEscalated, w.State)
}

func TestEscalationRecoversLeftoverMissed(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	w := f.addWindow(1, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateMissed)

	escalated, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.True(t, escalated[0].Published)
	assert.Equal(t, model.WindowStateEscalated, w.State)
	assert.Len(t, f.publisher.escalations, 1)
}

func TestPublishFailureStillClosesWindow(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.publisher.failPublish = true
	w := f.addWindow(1, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateMissed)

	escalated, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.False(t, escalated[0].Published)

	// 告警是至多一次尝试：投递失败也收敛终态，不重复轰炸联系人
	assert.Equal(t, model.WindowStateEscalated, w.State)
	assert.Len(t, f.publisher.escalations, 1)

	_, err = f.eval.Evaluate(context.Background(), monday8.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, f.publisher.escalations, 1)
}

func TestStaleMissSkipsEscalation(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true, StaleAfter: 24 * time.Hour})
	deadline := monday8.Add(30 * time.Minute)
	w := f.addWindow(1, 100, monday8, deadline, model.WindowStateOpen)

	// 25 小时后才恢复评估：记账但不打扰联系人
	escalated, err := f.eval.Evaluate(context.Background(), deadline.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, escalated)
	assert.Empty(t, f.publisher.escalations)
	assert.Equal(t, model.WindowStateEscalated, w.State)
	assert.Len(t, f.ledger.byStatus(model.CheckInEventMissed), 1)
}

func TestEvaluateSkipsWhenLockHeld(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addRule(1, 100, "morning", "08:00", 30, monday8, 1)
	f.locks.denyCount = 1

	escalated, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, escalated)

	open, _ := f.windows.ListOpen(context.Background())
	assert.Empty(t, open)
}

func TestCheckInRetriesLockThenSucceeds(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.addWindow(1, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateOpen)
	f.locks.denyCount = 3

	satisfied, err := f.eval.RecordCheckIn(context.Background(), 100, monday8.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, satisfied, 1)
}

func TestCheckInFailsWhenLockExhausted(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.locks.denyCount = checkInLockAttempts

	_, err := f.eval.RecordCheckIn(context.Background(), 100, monday8)
	assert.ErrorIs(t, err, pkgerrors.StoreUnavailable)
}

func TestReminderPublishedOnOpen(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true, ReminderLead: 15 * time.Minute})
	f.addRule(1, 100, "morning", "08:00", 30, monday8, 1)

	_, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Minute))
	require.NoError(t, err)

	require.Len(t, f.publisher.reminders, 1)
	r := f.publisher.reminders[0]
	assert.Equal(t, "morning", r.RuleLabel)
	// 截止 08:30，提前 15 分钟提醒，当前 08:01 → 延迟 14 分钟
	assert.Equal(t, 14*60, r.DelaySeconds)
}

func TestEvaluateSurfacesLedgerErrorOnMiss(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	w := f.addWindow(1, 100, monday8, monday8.Add(30*time.Minute), model.WindowStateOpen)
	f.ledger.appendErr = errors.New("ledger unavailable")

	_, err := f.eval.Evaluate(context.Background(), monday8.Add(time.Hour))
	require.Error(t, err)
	assert.ErrorContains(t, err, "ledger unavailable")

	// 窗口已判漏但账没记上：本轮失败，下一轮由 ListMissed 补偿升级
	assert.Equal(t, model.WindowStateMissed, w.State)
	assert.Empty(t, f.publisher.escalations)
	assert.False(t, f.locks.held[evaluateLockKey], "lock must be released on failure")
}

func TestEvaluateReleasesLockOnStoreError(t *testing.T) {
	f := newFixture(EvaluatorConfig{SatisfyAll: true})
	f.rules.listErr = errors.New("connection refused")

	_, err := f.eval.Evaluate(context.Background(), monday8)
	require.Error(t, err)
	assert.False(t, f.locks.held[evaluateLockKey], "lock must be released on failure")
}
