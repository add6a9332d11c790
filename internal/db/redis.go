package db

import (
	"context"

	"UsersAPI/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RDB is nil when no redis address is configured; callers must then skip
// the shared cache tier.
var RDB *redis.Client

// InitRedis takes the address explicitly rather than reading the environment.
func InitRedis(addr string) {
	if addr == "" {
		logger.Warn("redis_disabled", nil)
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func PingRedis(ctx context.Context) error {
	if RDB == nil {
		return nil
	}
	return RDB.Ping(ctx).Err()
}

func CloseRedis() error {
	if RDB == nil {
		return nil
	}
	return RDB.Close()
}
