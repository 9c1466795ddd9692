package query

import (
	"context"
	"time"

	"github.com/intelligencedev/ragserve/internal/embedding"
)

// QueryEmbedder resolves a query string to a vector, consulting the cache
// first and populating it on miss.
type QueryEmbedder struct {
	provider embedding.Provider
	cache    embedding.QueryCache
	ttl      time.Duration
}

func NewQueryEmbedder(provider embedding.Provider, cache embedding.QueryCache) *QueryEmbedder {
	return &QueryEmbedder{provider: provider, cache: cache, ttl: embedding.DefaultTTL}
}

// Embed returns the query's vector and whether it was served from cache.
func (e *QueryEmbedder) Embed(ctx context.Context, queryText string) ([]float32, bool, error) {
	if e.cache != nil {
		if vec, ok := e.cache.Get(queryText); ok {
			return vec, true, nil
		}
	}

	vectors, err := e.provider.EmbedBatch(ctx, []string{queryText})
	if err != nil {
		return nil, false, err
	}
	if len(vectors) == 0 {
		return nil, false, nil
	}
	vec := vectors[0]

	if e.cache != nil {
		e.cache.Set(queryText, vec, e.ttl)
	}
	return vec, false, nil
}
