package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"UsersAPI/internal/db"
	"UsersAPI/internal/logger"
	"UsersAPI/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// lookupCount checks the memory tier, then redis. A redis hit is copied into
// memory for no longer than the redis key has left to live.
func lookupCount(ctx context.Context, key string) (int, bool) {
	now := time.Now()
	if n, ok := globalCountCache.get(key, now); ok {
		metrics.CountCacheHits.WithLabelValues("memory").Inc()
		return n, true
	}

	if db.RDB != nil && globalCountCache.TTL() > 0 {
		pipe := db.RDB.Pipeline()
		getCmd := pipe.Get(ctx, key)
		ttlCmd := pipe.PTTL(ctx, key)
		_, _ = pipe.Exec(ctx)

		n, err := getCmd.Int()
		switch {
		case err == nil:
			globalCountCache.setUntil(key, n, now, redisDeadline(now, ttlCmd.Val()))
			metrics.CountCacheHits.WithLabelValues("redis").Inc()
			return n, true
		case !errors.Is(err, redis.Nil):
			logger.Warn("count_cache_redis_get_failed", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	metrics.CountCacheHits.WithLabelValues("miss").Inc()
	return 0, false
}

// redisDeadline turns a PTTL reply into an absolute expiry. Negative replies
// (no key, no expiry) leave the memory ttl in charge.
func redisDeadline(now time.Time, remaining time.Duration) time.Time {
	if remaining <= 0 {
		return time.Time{}
	}
	return now.Add(remaining)
}

func storeCount(ctx context.Context, key string, n int) {
	ttl := globalCountCache.TTL()
	if ttl == 0 {
		return
	}
	globalCountCache.set(key, n, time.Now())

	if db.RDB == nil {
		return
	}
	if err := db.RDB.Set(ctx, key, n, ttl).Err(); err != nil {
		logger.Warn("count_cache_redis_set_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// FlushCountCache drops every cached count from memory and redis.
func FlushCountCache(ctx context.Context) error {
	globalCountCache.reset()
	if err := deleteRedisKeys(ctx, countCachePrefix+"*"); err != nil {
		return err
	}
	logger.Info("count_cache_flushed", nil)
	return nil
}

// InvalidateCounts drops the cached counts of one model. Writes call it so
// totals reflect the change before the ttl runs out.
func InvalidateCounts(ctx context.Context, modelName string) error {
	prefix := modelCountPrefix(modelName)
	dropped := globalCountCache.dropPrefix(prefix)
	if err := deleteRedisKeys(ctx, prefix+"*"); err != nil {
		return err
	}
	logger.Debug("count_cache_invalidated", map[string]any{"model": modelName, "memory_entries": dropped})
	return nil
}

func deleteRedisKeys(ctx context.Context, pattern string) error {
	conn := db.RDB
	if conn == nil {
		return nil
	}
	iter := conn.Scan(ctx, 0, pattern, 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := conn.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	return nil
}
