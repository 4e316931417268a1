package cache

import (
	"context"
	"time"

	"SolGuard/storage/redis"
)

// SETNX 分布式锁。调度评估和用户打卡对窗口状态的读-判-写共用
// 同一把锁，跨进程互斥。
const lockPrefix = "lock"

func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	fullKey := redis.Key(lockPrefix, key)

	result, err := redis.Client().SetNX(ctx, fullKey, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return result, nil
}

func Unlock(ctx context.Context, key string) error {
	fullKey := redis.Key(lockPrefix, key)

	return redis.Client().Del(ctx, fullKey).Err()
}

// Locks 注入给评估器的锁实现
type Locks struct{}

func (Locks) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return TryLock(ctx, key, ttl)
}

func (Locks) Unlock(ctx context.Context, key string) error {
	return Unlock(ctx, key)
}
