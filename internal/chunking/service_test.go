package chunking

import (
	"context"
	"testing"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestServiceChunkDocumentSkipsEmptyPages(t *testing.T) {
	doc := &domain.ExtractedDocument{
		DocumentID: domain.NewID(),
		Filename:   "doc.txt",
		Format:     domain.FormatTXT,
		Language:   "en",
		Pages: []domain.ExtractedPage{
			{PageNumber: 0, IsEmpty: true},
			{PageNumber: 1, NormalizedText: "some real content here worth chunking into pieces.", Language: "en"},
		},
	}

	svc := NewService()
	result, err := svc.ChunkDocument(context.Background(), doc, DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	for _, c := range result.Chunks {
		require.Equal(t, 1, c.Metadata.PageNumber)
	}
}

func TestServiceChunkDocumentDiscardsBelowMinSize(t *testing.T) {
	doc := &domain.ExtractedDocument{
		DocumentID: domain.NewID(),
		Pages: []domain.ExtractedPage{
			{PageNumber: 0, NormalizedText: "hi"},
		},
	}
	cfg := DefaultConfig()
	cfg.MinChunkSizeChars = 10

	svc := NewService()
	result, err := svc.ChunkDocument(context.Background(), doc, cfg)
	require.NoError(t, err)
	require.Empty(t, result.Chunks)
	require.Equal(t, 1, result.QualityMetrics["empty_chunks_discarded"])
}

func TestServiceChunkDocumentTruncatesAboveMaxSize(t *testing.T) {
	doc := &domain.ExtractedDocument{
		DocumentID: domain.NewID(),
		Pages: []domain.ExtractedPage{
			{PageNumber: 0, NormalizedText: "abcdefghij"},
		},
	}
	cfg := DefaultConfig()
	cfg.Strategy = StrategySlidingWindow
	cfg.ChunkSizeChars = 10
	cfg.ChunkOverlapChars = 0
	cfg.MaxChunkSizeChars = 5

	svc := NewService()
	result, err := svc.ChunkDocument(context.Background(), doc, cfg)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	require.Equal(t, "abcde", result.Chunks[0].Content)
}

func TestServiceChunkDocumentAssignsSequentialChunkIndex(t *testing.T) {
	doc := &domain.ExtractedDocument{
		DocumentID: domain.NewID(),
		Pages: []domain.ExtractedPage{
			{PageNumber: 0, NormalizedText: "first paragraph.\n\nsecond paragraph.\n\nthird paragraph."},
		},
	}
	svc := NewService()
	result, err := svc.ChunkDocument(context.Background(), doc, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)
	for i, c := range result.Chunks {
		require.Equal(t, i, c.Metadata.ChunkIndex)
	}
}
