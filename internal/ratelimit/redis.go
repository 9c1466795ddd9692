package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter backs the same sliding-window contract with a Redis sorted
// set per user, so every server replica shares one limit.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "ragserve:ratelimit:"}
}

func (l *RedisLimiter) IsAllowed(ctx context.Context, userID string, limit int, window time.Duration) (bool, time.Duration, error) {
	key := l.prefix + userID
	now := time.Now()
	windowStart := now.Add(-window)

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10)).Err(); err != nil {
		return false, 0, err
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	if int(count) >= limit {
		oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err != nil {
			return false, 0, err
		}
		retryAfter := time.Second
		if len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retryAfter = oldestAt.Sub(windowStart) + time.Second
		}
		return false, retryAfter, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}
