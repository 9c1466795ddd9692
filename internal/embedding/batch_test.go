package embedding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// stubProvider is shared across the bounded worker pool in
// BatchProvider.EmbedBatch, so its counters need their own lock.
type stubProvider struct {
	mu       sync.Mutex
	calls    int
	failN    int // fail this many calls before succeeding
	failErr  error
	lastSize int
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.lastSize = len(texts)
	s.mu.Unlock()

	if call <= s.failN {
		return nil, s.failErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestBatchProviderSplitsIntoConfiguredBatchSize(t *testing.T) {
	stub := &stubProvider{}
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	bp := NewBatchProvider(stub, cfg, newTestLogger())
	bp.sleep = func(d time.Duration) {}

	vectors, err := bp.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	require.Equal(t, 3, stub.callCount()) // 2 + 2 + 1
}

func TestBatchProviderRetriesRetryableErrors(t *testing.T) {
	stub := &stubProvider{failN: 2, failErr: &ProviderError{StatusCode: 429}}
	cfg := DefaultConfig()
	cfg.BaseBackoffSeconds = 0.001
	bp := NewBatchProvider(stub, cfg, newTestLogger())
	bp.sleep = func(d time.Duration) {}

	vectors, err := bp.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Equal(t, 3, stub.callCount())
}

func TestBatchProviderStopsRetryingNonRetryableErrors(t *testing.T) {
	stub := &stubProvider{failN: 10, failErr: &ProviderError{StatusCode: 400}}
	cfg := DefaultConfig()
	cfg.BaseBackoffSeconds = 0.001
	bp := NewBatchProvider(stub, cfg, newTestLogger())
	bp.sleep = func(d time.Duration) {}

	_, err := bp.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	require.Equal(t, 1, stub.callCount())
}

func TestBatchProviderGivesUpAfterMaxRetries(t *testing.T) {
	stub := &stubProvider{failN: 100, failErr: &ProviderError{StatusCode: 503}}
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.BaseBackoffSeconds = 0.001
	bp := NewBatchProvider(stub, cfg, newTestLogger())
	bp.sleep = func(d time.Duration) {}

	_, err := bp.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	require.Equal(t, 3, stub.callCount()) // initial + 2 retries
}
