package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mentor_chat/pkg/logger"
)

const RateLimitKeyPrefix = "ratelimit:%s"

// RateLimitRepository is a fixed-window counter.
type RateLimitRepository interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

// Hit increments the counter for key and returns the count within the current
// window. The window starts with the first hit; a counter left without a TTL
// gets one on the next hit. Works on any Redis version.
func (r *rateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if r.redis == nil {
		return 0, nil
	}

	redisKey := fmt.Sprintf(RateLimitKeyPrefix, key)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttl = pipe.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to increment rate limit", "key", key, "error", err)
		return 0, err
	}

	if needsExpiry(incr.Val(), ttl.Val()) {
		if err := r.redis.Expire(ctx, redisKey, window).Err(); err != nil {
			r.log.Warn("Failed to set rate limit window", "key", key, "error", err)
		}
	}

	return incr.Val(), nil
}

// needsExpiry reports whether the counter must be given its window TTL: on the
// first hit, or whenever Redis reports the key has no expiry.
func needsExpiry(count int64, ttl time.Duration) bool {
	return count == 1 || ttl < 0
}
