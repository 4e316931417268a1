package repository

import (
	"fmt"
	"os"

	"gorm.io/gen"

	"SolGuard/internal/model"
	"SolGuard/storage/database"
)

// gorm.io/gen 查询接口声明。运行 cmd/gen 在 ./internal/repository/query
// 下生成类型安全的查询代码（生成产物不入库，按需生成）。

// ========== User 相关查询接口 ==========

// UserQuerier 用户查询接口
type UserQuerier interface {
	// GetByDeviceID 根据设备标识查询用户
	//
	// SELECT * FROM @@table WHERE device_id = @deviceID LIMIT 1
	GetByDeviceID(deviceID string) (*gen.T, error)

	// GetByPublicID 根据 PublicID 查询用户（API 中 user_id 是 public_id）
	//
	// SELECT * FROM @@table WHERE public_id = @publicID LIMIT 1
	GetByPublicID(publicID int64) (*gen.T, error)

	// CountByStatus 统计各状态的用户数量
	//
	// SELECT status, COUNT(*) as count
	// FROM @@table
	// GROUP BY status
	CountByStatus() ([]gen.M, error)
}

// ========== Schedule 相关查询接口 ==========

// ScheduleQuerier 打卡日程查询接口
type ScheduleQuerier interface {
	// ListDueRules 查询到点待开窗的规则（调度器用）
	//
	// SELECT * FROM @@table
	// WHERE enabled = true
	//   AND next_open_at IS NOT NULL
	//   AND next_open_at <= NOW()
	// ORDER BY next_open_at ASC
	ListDueRules() ([]*gen.T, error)

	// ListByUserPublicID 根据用户 PublicID 查询日程
	//
	// SELECT s.* FROM @@table s
	// INNER JOIN users u ON u.id = s.user_id
	// WHERE u.public_id = @publicID
	// ORDER BY s.time_of_day ASC
	ListByUserPublicID(publicID int64) ([]*gen.T, error)
}

// ========== CheckInWindow 相关查询接口 ==========

// WindowQuerier 打卡窗口查询接口
type WindowQuerier interface {
	// ListExpiredOpen 查询已过截止仍为 open 的窗口（漏卡判定用）
	//
	// SELECT * FROM @@table
	// WHERE state = 'open'
	//   AND deadline_at < NOW()
	// ORDER BY deadline_at ASC
	ListExpiredOpen() ([]*gen.T, error)

	// CountByUserAndState 统计用户各状态窗口数量
	//
	// SELECT state, COUNT(*) as count
	// FROM @@table
	// WHERE user_id = @userID
	// GROUP BY state
	CountByUserAndState(userID int64) ([]gen.M, error)
}

// ========== CheckInEvent 相关查询接口 ==========

// EventQuerier 打卡账本查询接口
type EventQuerier interface {
	// ListByUserAndRange 按用户和时间范围查询账本（分页）
	//
	// SELECT * FROM @@table
	// WHERE user_id = @userID
	//   AND occurred_at >= @from
	//   AND occurred_at < @to
	//   {{if status != ""}}
	//   AND status = @status
	//   {{end}}
	// ORDER BY occurred_at DESC
	// LIMIT @limit OFFSET @offset
	ListByUserAndRange(userID int64, from, to string, status string, limit, offset int) ([]*gen.T, error)

	// CountByUserAndStatus 统计用户账本数量（按状态）
	//
	// SELECT status, COUNT(*) as count
	// FROM @@table
	// WHERE user_id = @userID
	// GROUP BY status
	CountByUserAndStatus(userID int64) ([]gen.M, error)
}

// ========== ContactAttempt 相关查询接口 ==========

// ContactAttemptQuerier 告警投递尝试查询接口
type ContactAttemptQuerier interface {
	// ListByWindowID 窗口维度的投递尝试记录
	//
	// SELECT * FROM @@table
	// WHERE window_id = @windowID
	// ORDER BY attempted_at DESC
	ListByWindowID(windowID int64) ([]*gen.T, error)

	// CountByWindowID 统计窗口的投递尝试次数
	//
	// SELECT COUNT(*) as count
	// FROM @@table
	// WHERE window_id = @windowID
	CountByWindowID(windowID int64) (int64, error)
}

func Generate() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	db := database.DB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./internal/repository/query",
		ModelPkgPath:      "SolGuard/internal/model",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface | gen.WithoutContext,
		FieldNullable:     true,
		FieldCoverable:    false,
		FieldSignable:     false,
		FieldWithIndexTag: false,
		FieldWithTypeTag:  true,
	})

	g.UseDB(db)

	g.ApplyBasic(
		&model.User{},
		&model.Schedule{},
		&model.CheckInWindow{},
		&model.CheckInEvent{},
		&model.Contact{},
		&model.ContactAttempt{},
	)

	g.ApplyInterface(func(UserQuerier) {}, &model.User{})
	g.ApplyInterface(func(ScheduleQuerier) {}, &model.Schedule{})
	g.ApplyInterface(func(WindowQuerier) {}, &model.CheckInWindow{})
	g.ApplyInterface(func(EventQuerier) {}, &model.CheckInEvent{})
	g.ApplyInterface(func(ContactAttemptQuerier) {}, &model.ContactAttempt{})

	g.Execute()

	return nil
}

func RunGenerate() {
	if err := Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate code: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Code generation completed successfully!")
}
