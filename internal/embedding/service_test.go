package embedding

import (
	"context"
	"testing"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/vectorstore"
	"github.com/stretchr/testify/require"
)

func TestServiceEmbedAndStoreSkipsDuplicates(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	docID := domain.NewID()

	existing := &domain.Embedding{
		EmbeddingID: domain.NewID(), ChunkID: domain.NewID(), DocumentID: docID,
		Content: "duplicate text", Vector: []float32{1, 2, 3}, EmbeddingDimension: 3,
	}
	require.NoError(t, store.StoreEmbedding(context.Background(), existing))

	cfg := DefaultConfig()
	cfg.BatchSize = 10
	cfg.EmbeddingDimension = 3
	cfg.SkipDuplicateContent = true

	provider := NewBatchProvider(&stubProvider{}, cfg, newTestLogger())
	svc := NewService(provider, store, newTestLogger())

	chunks := []domain.Chunk{
		{ChunkID: domain.NewID(), DocumentID: docID, Content: "duplicate text"},
		{ChunkID: domain.NewID(), DocumentID: docID, Content: "fresh text"},
	}

	result, err := svc.EmbedAndStore(context.Background(), chunks, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.QualityMetrics["duplicates_skipped"])
	require.Equal(t, 1, result.SuccessfulEmbeddings)
	require.True(t, chunks[0].IsDuplicate)
	require.True(t, chunks[1].HasValidEmbedding)
}

func TestServiceEmbedAndStoreEmptyInput(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	cfg := DefaultConfig()
	provider := NewBatchProvider(&stubProvider{}, cfg, newTestLogger())
	svc := NewService(provider, store, newTestLogger())

	result, err := svc.EmbedAndStore(context.Background(), nil, cfg)
	require.NoError(t, err)
	require.Equal(t, 0, result.TotalInputs)
}

func TestServiceEmbedAndStoreMarksProviderFailures(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	cfg.BaseBackoffSeconds = 0.001

	provider := NewBatchProvider(&stubProvider{failN: 100, failErr: &ProviderError{StatusCode: 500}}, cfg, newTestLogger())
	svc := NewService(provider, store, newTestLogger())

	chunks := []domain.Chunk{{ChunkID: domain.NewID(), DocumentID: domain.NewID(), Content: "text"}}
	result, err := svc.EmbedAndStore(context.Background(), chunks, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.FailedEmbeddings)
	require.Len(t, result.Failures, 1)
}
