package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentBatches caps how many batch calls run at once, so a large
// ingestion job doesn't open one goroutine (and one provider connection)
// per batch; mirrors "provider calls are performed on a worker pool" in
// section 5.
const maxConcurrentBatches = 4

// BatchProvider wraps a low-level Provider with batching and retry/backoff,
// so callers can hand it an arbitrarily large text list.
type BatchProvider struct {
	provider Provider
	cfg      Config
	log      logrus.FieldLogger
	sleep    func(time.Duration) // overridable in tests
}

func NewBatchProvider(provider Provider, cfg Config, log logrus.FieldLogger) *BatchProvider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BatchProvider{provider: provider, cfg: cfg, log: log, sleep: time.Sleep}
}

// EmbedBatch splits texts into cfg.BatchSize groups, embeds each with
// retry/backoff on a bounded worker pool, and returns a flat, input-aligned
// slice of vectors. Batches are independent: one failing batch cancels the
// others via the shared errgroup context, and the first error wins.
func (b *BatchProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding: texts list cannot be empty")
	}

	batchSize := b.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	var starts []int
	for i := 0; i < len(texts); i += batchSize {
		starts = append(starts, i)
	}

	results := make([][][]float32, len(starts))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentBatches)

	for idx, start := range starts {
		idx, start := idx, start
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		group.Go(func() error {
			vectors, err := b.embedWithRetries(groupCtx, texts[start:end])
			if err != nil {
				return err
			}
			results[idx] = vectors
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	var all [][]float32
	for _, vectors := range results {
		all = append(all, vectors...)
	}
	return all, nil
}

func (b *BatchProvider) embedWithRetries(ctx context.Context, texts []string) ([][]float32, error) {
	delay := time.Duration(b.cfg.BaseBackoffSeconds * float64(time.Second))
	attempts := 0

	for {
		attempts++
		vectors, err := b.provider.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}

		retryable := isRetryableError(err)
		if !retryable || attempts > b.cfg.MaxRetries {
			b.log.WithError(err).WithField("attempts", attempts).WithField("retryable", retryable).
				Error("embedding_batch_failed")
			return nil, fmt.Errorf("embedding provider failed after %d attempts: %w", attempts, err)
		}

		b.log.WithError(err).WithField("attempt", attempts).WithField("delay", delay).
			Warn("embedding_batch_retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		b.sleep(delay)
		delay *= 2
	}
}
