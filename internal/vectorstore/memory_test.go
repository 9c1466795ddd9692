package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestEmbedding(docID domain.ID, chunkIndex int, content string, vec []float32) *domain.Embedding {
	return &domain.Embedding{
		EmbeddingID:           domain.NewID(),
		ChunkID:               domain.NewID(),
		DocumentID:            docID,
		Content:               content,
		Vector:                vec,
		EmbeddingModel:        "text-embedding-3-small",
		EmbeddingDimension:    len(vec),
		Metadata:              domain.ChunkMetadata{ChunkIndex: chunkIndex},
		EmbeddingQualityScore: 1.0,
		CreatedAt:             time.Now().UTC(),
		UpdatedAt:             time.Now().UTC(),
	}
}

func TestMemoryStoreSearchBySimilarityRanksClosestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docID := domain.NewID()

	near := newTestEmbedding(docID, 0, "near", []float32{1, 0, 0})
	far := newTestEmbedding(docID, 1, "far", []float32{0, 1, 0})
	require.NoError(t, store.StoreEmbeddingsBatch(ctx, []*domain.Embedding{far, near}))

	results, err := store.SearchBySimilarity(ctx, docID, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, near.ChunkID, results[0].ChunkID)
	require.Equal(t, 1, results[0].Rank)
	require.InDelta(t, 1.0, results[0].SimilarityScore, 1e-9)
}

func TestMemoryStoreSearchBySimilarityScopesToDocument(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docA, docB := domain.NewID(), domain.NewID()

	require.NoError(t, store.StoreEmbedding(ctx, newTestEmbedding(docA, 0, "a", []float32{1, 0})))
	require.NoError(t, store.StoreEmbedding(ctx, newTestEmbedding(docB, 0, "b", []float32{1, 0})))

	results, err := store.SearchBySimilarity(ctx, docA, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, docA, results[0].DocumentID)
}

func TestMemoryStoreSearchBySimilarityHonorsMetadataFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docID := domain.NewID()

	en := newTestEmbedding(docID, 0, "english", []float32{1, 0})
	en.Metadata.Language = "en"
	fr := newTestEmbedding(docID, 1, "french", []float32{1, 0})
	fr.Metadata.Language = "fr"
	require.NoError(t, store.StoreEmbeddingsBatch(ctx, []*domain.Embedding{en, fr}))

	results, err := store.SearchBySimilarity(ctx, docID, []float32{1, 0}, 10, map[string]string{"language": "en"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, en.ChunkID, results[0].ChunkID)
}

func TestMemoryStoreSearchBySimilarityExcludesUnknownFilterKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docID := domain.NewID()
	require.NoError(t, store.StoreEmbedding(ctx, newTestEmbedding(docID, 0, "a", []float32{1, 0})))

	results, err := store.SearchBySimilarity(ctx, docID, []float32{1, 0}, 10, map[string]string{"not_a_real_field": "x"})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMemoryStoreZeroNormVectorScoresZero(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docID := domain.NewID()
	require.NoError(t, store.StoreEmbedding(ctx, newTestEmbedding(docID, 0, "zero", []float32{0, 0, 0})))

	results, err := store.SearchBySimilarity(ctx, docID, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Zero(t, results[0].SimilarityScore)
}

func TestMemoryStoreCheckDuplicateContent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docID := domain.NewID()
	require.NoError(t, store.StoreEmbedding(ctx, newTestEmbedding(docID, 0, "same text", []float32{1, 1})))

	dup, err := store.CheckDuplicateContent(ctx, docID, "same text")
	require.NoError(t, err)
	require.True(t, dup)

	dup, err = store.CheckDuplicateContent(ctx, docID, "different text")
	require.NoError(t, err)
	require.False(t, dup)
}

func TestMemoryStoreSearchByDocumentOrdersByChunkIndex(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	docID := domain.NewID()
	require.NoError(t, store.StoreEmbeddingsBatch(ctx, []*domain.Embedding{
		newTestEmbedding(docID, 2, "third", []float32{1}),
		newTestEmbedding(docID, 0, "first", []float32{1}),
		newTestEmbedding(docID, 1, "second", []float32{1}),
	}))

	results, err := store.SearchByDocument(ctx, docID, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "first", results[0].Content)
	require.Equal(t, "second", results[1].Content)
	require.Equal(t, "third", results[2].Content)
}
