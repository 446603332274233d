package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-generator/backend/internal/config"
)

// RedisLocker 用 SETNX 实现的合同级生成锁，防止定时任务和手动触发
// 同时为同一个合同生成班次。锁带过期时间，进程异常退出后会自动释放
type RedisLocker struct {
	cfg *config.Config
	rdb *redis.Client
}

func NewRedisLocker(cfg *config.Config, rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		cfg: cfg,
		rdb: rdb,
	}
}

func lockKey(contractID int64) string {
	return fmt.Sprintf("shift_generation_lock:%d", contractID)
}

func (l *RedisLocker) Acquire(ctx context.Context, contractID int64) (bool, error) {
	expiration := time.Duration(l.cfg.Redis.LockExpiration) * time.Second
	return l.rdb.SetNX(ctx, lockKey(contractID), "1", expiration).Result()
}

func (l *RedisLocker) Release(ctx context.Context, contractID int64) error {
	return l.rdb.Del(ctx, lockKey(contractID)).Err()
}
