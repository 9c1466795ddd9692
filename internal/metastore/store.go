// Package metastore persists the document and chunk rows written by
// ingestion stage 3 ("Persist chunks"), independent of the vector store:
// the columnar record of what was ingested, versus the vector store's
// similarity index over the same chunks.
package metastore

import (
	"context"

	"github.com/intelligencedev/ragserve/internal/domain"
)

// IngestionStatus mirrors the document row's own status column, set
// independently of the in-memory job record so a status query can survive
// a process restart when a SQL backend is configured.
type IngestionStatus string

const (
	IngestionStatusProcessing IngestionStatus = "processing"
	IngestionStatusCompleted  IngestionStatus = "completed"
	IngestionStatusFailed     IngestionStatus = "failed"
)

// DocumentRow is the upserted row for one ExtractedDocument.
type DocumentRow struct {
	DocumentID      domain.ID
	Filename        string
	Format          domain.Format
	Language        string
	TotalPages      int
	IngestionStatus IngestionStatus
}

// Store is the stage-3 persistence boundary: a single transactional batch
// writing one document row and its chunk rows, keyed by primary id.
type Store interface {
	// UpsertDocumentAndChunks writes doc and chunks in one transaction,
	// upserting by document_id and chunk_id respectively.
	UpsertDocumentAndChunks(ctx context.Context, doc DocumentRow, chunks []domain.Chunk) error

	// MarkDocumentStatus best-effort updates a document row's
	// ingestion_status column, used on stage-4 (embedding) failure and
	// success.
	MarkDocumentStatus(ctx context.Context, documentID domain.ID, status IngestionStatus) error

	Close() error
}
