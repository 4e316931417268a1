package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"SolGuard/storage/redis"
)

const (
	markPrefix             = "mark"
	messageProcessedPrefix = "message:processed"
	reminderMonthlyPrefix  = "reminder:monthly"

	processedTTL = 48 * time.Hour

	// MonthlyReminderLimit 免费用户每月提醒短信上限
	MonthlyReminderLimit = 30
)

// TryMark 原子占位（SETNX）。告警去重用：首次返回 true，之后 false。
func TryMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	fullKey := redis.Key(markPrefix, key)

	result, err := redis.Client().SetNX(ctx, fullKey, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return result, nil
}

// Marks 注入给评估器的去重标记实现
type Marks struct{}

func (Marks) TryMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return TryMark(ctx, key, ttl)
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（SETNX）
// 返回 true 表示首次处理，false 表示重复消息或正在处理
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// ========== 月度提醒限流 ==========

// GetMonthlyReminderCount 获取用户本月已发送的提醒短信次数
// monthKey 格式: "2006-01"
func GetMonthlyReminderCount(ctx context.Context, userID int64, monthKey string) (int, error) {
	key := redis.Key(reminderMonthlyPrefix, fmt.Sprintf("%d", userID), monthKey)
	count, err := redis.Client().Get(ctx, key).Int()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get monthly reminder count: %w", err)
	}
	return count, nil
}

// IncrementMonthlyReminderCount 增加用户本月提醒计数，key 过期在下月 1 号
func IncrementMonthlyReminderCount(ctx context.Context, userID int64, monthKey string) error {
	key := redis.Key(reminderMonthlyPrefix, fmt.Sprintf("%d", userID), monthKey)

	now := time.Now()
	nextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	ttl := nextMonth.Sub(now)

	pipe := redis.Client().Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment monthly reminder count: %w", err)
	}
	return nil
}

// CheckMonthlyReminderLimit 检查用户是否还可发送提醒短信
func CheckMonthlyReminderLimit(ctx context.Context, userID int64) (bool, int, error) {
	monthKey := time.Now().Format("2006-01")
	count, err := GetMonthlyReminderCount(ctx, userID, monthKey)
	if err != nil {
		return true, 0, err // 出错时降级，允许发送
	}
	return count < MonthlyReminderLimit, count, nil
}
