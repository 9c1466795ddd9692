// Package vectorstore persists embeddings and serves nearest-neighbor
// lookups behind one pluggable interface, backed by an in-memory map, a
// Postgres+pgvector table, or a Qdrant collection.
package vectorstore

import (
	"context"
	"strconv"

	"github.com/intelligencedev/ragserve/internal/domain"
)

// Store is the persistence boundary the ingestion orchestrator writes
// through and the query orchestrator reads through.
type Store interface {
	// StoreEmbedding upserts one embedding.
	StoreEmbedding(ctx context.Context, emb *domain.Embedding) error

	// StoreEmbeddingsBatch upserts many embeddings, returning the first
	// error; the Postgres backend writes the batch in one transaction, so a
	// failed batch leaves none of it written.
	StoreEmbeddingsBatch(ctx context.Context, embs []*domain.Embedding) error

	// SearchBySimilarity returns the topK nearest embeddings to
	// queryVector, optionally restricted to one document and further
	// restricted by filters (matched against each chunk's persisted
	// metadata — see metadataMatches), ranked descending by similarity
	// score. Every returned item satisfies every filter key/value pair.
	SearchBySimilarity(ctx context.Context, documentID domain.ID, queryVector []float32, topK int, filters map[string]string) ([]domain.RetrievedChunk, error)

	// SearchByDocument returns every stored embedding for one document,
	// in chunk index order, without a similarity query.
	SearchByDocument(ctx context.Context, documentID domain.ID, limit int) ([]domain.RetrievedChunk, error)

	// CheckDuplicateContent reports whether a chunk with identical
	// content already exists for the given document.
	CheckDuplicateContent(ctx context.Context, documentID domain.ID, content string) (bool, error)

	// Close releases any underlying connection pool. A no-op for the
	// in-memory backend.
	Close() error
}

func contentHash(content string) string {
	h := sha256sum(content)
	return h
}

// metadataField names one ChunkMetadata field a filter key can constrain,
// and the JSON key encoding/json gives it (ChunkMetadata carries no json
// tags, so this is just the Go field name — shared with the JSONB column
// the Postgres backend stores metadata in).
type metadataField struct {
	jsonKey string
	value   func(domain.ChunkMetadata) string
}

// knownMetadataFilters maps every filter key section 6's generic `filters`
// map may carry (besides document_id, which SearchBySimilarity's dedicated
// documentID parameter already covers) to the ChunkMetadata field it
// constrains.
var knownMetadataFilters = map[string]metadataField{
	"user_id":         {"UserID", func(m domain.ChunkMetadata) string { return m.UserID }},
	"language":        {"Language", func(m domain.ChunkMetadata) string { return m.Language }},
	"section_title":   {"SectionTitle", func(m domain.ChunkMetadata) string { return m.SectionTitle }},
	"document_type":   {"DocumentType", func(m domain.ChunkMetadata) string { return m.DocumentType }},
	"source_filename": {"SourceFilename", func(m domain.ChunkMetadata) string { return m.SourceFilename }},
	"page_number":     {"PageNumber", func(m domain.ChunkMetadata) string { return strconv.Itoa(m.PageNumber) }},
}

// metadataMatches reports whether meta satisfies every filter. A key that
// names no known metadata field can never be satisfied, so it excludes
// every record rather than being silently ignored — this is what keeps
// "every returned item satisfies all filters" true even for an unsupported
// key instead of quietly dropping the constraint.
func metadataMatches(meta domain.ChunkMetadata, filters map[string]string) bool {
	for key, want := range filters {
		if key == "document_id" {
			continue
		}
		field, ok := knownMetadataFilters[key]
		if !ok || field.value(meta) != want {
			return false
		}
	}
	return true
}
