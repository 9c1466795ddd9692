package embedding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueryCacheMissForUnknownQuery(t *testing.T) {
	cache := NewMemoryQueryCache()
	_, ok := cache.Get("unknown")
	require.False(t, ok)
}

func TestMemoryQueryCacheRoundTripsAndCopies(t *testing.T) {
	cache := NewMemoryQueryCache()
	vector := []float32{0.1, 0.2, 0.3}
	cache.Set("test query", vector, time.Hour)

	got, ok := cache.Get("test query")
	require.True(t, ok)
	require.Equal(t, vector, got)

	got[0] = 99
	got2, _ := cache.Get("test query")
	require.NotEqual(t, got, got2)
}

func TestMemoryQueryCacheDistinguishesQueries(t *testing.T) {
	cache := NewMemoryQueryCache()
	cache.Set("query1", []float32{1}, time.Hour)
	cache.Set("query2", []float32{2}, time.Hour)

	v1, _ := cache.Get("query1")
	v2, _ := cache.Get("query2")
	require.Equal(t, []float32{1}, v1)
	require.Equal(t, []float32{2}, v2)
}

func TestMemoryQueryCacheExpiresAfterTTL(t *testing.T) {
	cache := NewMemoryQueryCache()
	fakeNow := time.Now()
	cache.now = func() time.Time { return fakeNow }

	cache.Set("query", []float32{0.1}, 100*time.Millisecond)
	_, ok := cache.Get("query")
	require.True(t, ok)

	fakeNow = fakeNow.Add(200 * time.Millisecond)
	_, ok = cache.Get("query")
	require.False(t, ok)
}
