package schedule

import (
	"context"
	"time"

	"SolGuard/internal/model"
)

// 评估器的全部外部依赖都走接口注入，生产环境由 repository/cache/queue
// 提供实现，测试用内存假件。评估器自己不碰任何全局存储。

// RuleStore 打卡规则只读视图 + 调度状态推进
type RuleStore interface {
	// ListEnabled 返回所有启用的规则
	ListEnabled(ctx context.Context) ([]*model.Schedule, error)
	// AdvanceNextOpen 推进规则的下一个窗口打开时刻
	AdvanceNextOpen(ctx context.Context, ruleID int64, next time.Time) error
}

// WindowStore 打卡窗口持久化
type WindowStore interface {
	// ListOpen 返回所有 open 状态的窗口
	ListOpen(ctx context.Context) ([]*model.CheckInWindow, error)
	// ListOpenByUser 返回某用户所有 open 状态的窗口
	ListOpenByUser(ctx context.Context, userID int64) ([]*model.CheckInWindow, error)
	// ListMissed 返回所有 missed 状态的窗口（崩溃恢复时补发告警用）
	ListMissed(ctx context.Context) ([]*model.CheckInWindow, error)
	// Create 新建窗口
	Create(ctx context.Context, w *model.CheckInWindow) error
	// Transition 条件状态迁移（CAS）：仅当当前状态为 from 时迁移到 to，
	// 返回是否迁移成功。落库失败时不得提交任何迁移。
	Transition(ctx context.Context, windowID int64, from, to model.WindowState, at time.Time) (bool, error)
}

// Ledger 打卡账本，只追加
type Ledger interface {
	Append(ctx context.Context, ev *model.CheckInEvent) error
}

// EscalationPublisher 告警投递边界（MQ），慢或失败都不能阻塞状态迁移
type EscalationPublisher interface {
	PublishEscalation(msg model.EscalationMessage) error
	PublishReminder(msg model.CheckInReminderMessage) error
}

// Locker 单写者互斥：评估 tick 和用户打卡对窗口状态的
// "读-判-写"必须互斥，避免打卡与判定超时同时发生的丢失更新
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Marker 告警去重标记（SETNX 语义），跨进程保证每窗口至多一次告警投递
type Marker interface {
	TryMark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
