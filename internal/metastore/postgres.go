package metastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs document/chunk persistence with the `documents` and
// `chunks` tables named in section 6.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documents (
	document_id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	format TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	total_pages INT NOT NULL DEFAULT 0,
	ingestion_status TEXT NOT NULL DEFAULT 'processing'
);
`)
	if err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	_, err = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(document_id),
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	token_count INT NOT NULL DEFAULT 0,
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0
);
`)
	if err != nil {
		return nil, fmt.Errorf("create chunks table: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunks_document_id_idx ON chunks(document_id)`); err != nil {
		return nil, fmt.Errorf("create chunks document index: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) UpsertDocumentAndChunks(ctx context.Context, doc DocumentRow, chunks []domain.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin stage-3 transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO documents (document_id, filename, format, language, total_pages, ingestion_status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (document_id) DO UPDATE SET
	filename = EXCLUDED.filename, format = EXCLUDED.format, language = EXCLUDED.language,
	total_pages = EXCLUDED.total_pages, ingestion_status = EXCLUDED.ingestion_status
`, doc.DocumentID.String(), doc.Filename, string(doc.Format), doc.Language, doc.TotalPages, string(doc.IngestionStatus))
	if err != nil {
		return fmt.Errorf("upsert document row: %w", err)
	}

	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, document_id, content, metadata, token_count, quality_score)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (chunk_id) DO UPDATE SET
	content = EXCLUDED.content, metadata = EXCLUDED.metadata,
	token_count = EXCLUDED.token_count, quality_score = EXCLUDED.quality_score
`, c.ChunkID.String(), c.DocumentID.String(), c.Content, metadata, c.TokenCount, c.QualityScore)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) MarkDocumentStatus(ctx context.Context, documentID domain.ID, status IngestionStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE documents SET ingestion_status = $1 WHERE document_id = $2`,
		string(status), documentID.String())
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
