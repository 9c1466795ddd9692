package embedding

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisQueryCache backs QueryCache with a shared Redis instance so every
// server replica reuses the same cached query embeddings. Misses and
// connection errors both fall through as cache misses rather than failing
// the query pipeline.
type RedisQueryCache struct {
	client redis.UniversalClient
	prefix string
	log    logrus.FieldLogger
}

func NewRedisQueryCache(client redis.UniversalClient, log logrus.FieldLogger) *RedisQueryCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisQueryCache{client: client, prefix: "ragserve:qcache:", log: log}
}

func (c *RedisQueryCache) Get(queryText string) ([]float32, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+queryText).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("query_cache_get_failed")
		}
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		c.log.WithError(err).Warn("query_cache_decode_failed")
		return nil, false
	}
	return vector, true
}

func (c *RedisQueryCache) Set(queryText string, vector []float32, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := json.Marshal(vector)
	if err != nil {
		c.log.WithError(err).Warn("query_cache_encode_failed")
		return
	}
	if err := c.client.Set(ctx, c.prefix+queryText, raw, ttl).Err(); err != nil {
		c.log.WithError(err).Warn("query_cache_set_failed")
	}
}
