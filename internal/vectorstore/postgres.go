package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type postgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgresStore wires a pgvector-backed table. The caller owns the pool's
// lifecycle beyond Close, which only releases this store's reference.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, dimension int) (Store, error) {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("enable pgvector extension: %w", err)
	}
	_, err := pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS embeddings (
	chunk_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	content TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	vec vector(%d) NOT NULL,
	model TEXT NOT NULL,
	dimension INT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	embedding_quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`, dimension))
	if err != nil {
		return nil, fmt.Errorf("create embeddings table: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS embeddings_document_id_idx ON embeddings(document_id)`); err != nil {
		return nil, fmt.Errorf("create document index: %w", err)
	}
	return &postgresStore{pool: pool, dimension: dimension}, nil
}

func (p *postgresStore) StoreEmbedding(ctx context.Context, emb *domain.Embedding) error {
	return p.upsert(ctx, emb)
}

func (p *postgresStore) StoreEmbeddingsBatch(ctx context.Context, embs []*domain.Embedding) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, emb := range embs {
		metadata, err := json.Marshal(emb.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertSQL,
			emb.ChunkID.String(), emb.DocumentID.String(), emb.Content, contentHash(emb.Content),
			pgvector.NewVector(emb.Vector), emb.EmbeddingModel, emb.EmbeddingDimension, metadata,
			emb.QualityScore, emb.EmbeddingQualityScore, emb.CreatedAt, emb.UpdatedAt); err != nil {
			return fmt.Errorf("batch upsert chunk %s: %w", emb.ChunkID, err)
		}
	}
	return tx.Commit(ctx)
}

func (p *postgresStore) upsert(ctx context.Context, emb *domain.Embedding) error {
	metadata, err := json.Marshal(emb.Metadata)
	if err != nil {
		return fmt.Errorf("marshal chunk metadata: %w", err)
	}
	_, err = p.pool.Exec(ctx, upsertSQL,
		emb.ChunkID.String(), emb.DocumentID.String(), emb.Content, contentHash(emb.Content),
		pgvector.NewVector(emb.Vector), emb.EmbeddingModel, emb.EmbeddingDimension, metadata,
		emb.QualityScore, emb.EmbeddingQualityScore, emb.CreatedAt, emb.UpdatedAt)
	return err
}

const upsertSQL = `
INSERT INTO embeddings(chunk_id, document_id, content, content_hash, vec, model, dimension, metadata, quality_score, embedding_quality_score, created_at, updated_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (chunk_id) DO UPDATE SET
	content = EXCLUDED.content,
	content_hash = EXCLUDED.content_hash,
	vec = EXCLUDED.vec,
	model = EXCLUDED.model,
	dimension = EXCLUDED.dimension,
	metadata = EXCLUDED.metadata,
	quality_score = EXCLUDED.quality_score,
	embedding_quality_score = EXCLUDED.embedding_quality_score,
	updated_at = EXCLUDED.updated_at
`

func (p *postgresStore) SearchBySimilarity(ctx context.Context, documentID domain.ID, queryVector []float32, topK int, filters map[string]string) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 10
	}
	qvec := pgvector.NewVector(queryVector)

	query := `SELECT chunk_id, document_id, content, vec, model, metadata, embedding_quality_score, created_at, updated_at,
		1 - (vec <=> $1) AS score
	FROM embeddings`
	args := []any{qvec}

	var conditions []string
	if !documentID.Empty() {
		args = append(args, documentID.String())
		conditions = append(conditions, fmt.Sprintf("document_id = $%d", len(args)))
	}
	for key, want := range filters {
		if key == "document_id" {
			continue
		}
		field, ok := knownMetadataFilters[key]
		if !ok {
			// Unknown filter key can never be satisfied; exclude every row.
			conditions = append(conditions, "FALSE")
			continue
		}
		args = append(args, want)
		conditions = append(conditions, fmt.Sprintf("metadata->>'%s' = $%d", field.jsonKey, len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, topK)
	query += fmt.Sprintf(" ORDER BY vec <=> $1 LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	rank := 0
	for rows.Next() {
		var (
			chunkID, docID, model string
			content               string
			vec                   pgvector.Vector
			metadataRaw           []byte
			quality               float64
			createdAt, updatedAt  time.Time
			score                 float64
		)
		if err := rows.Scan(&chunkID, &docID, &content, &vec, &model, &metadataRaw, &quality, &createdAt, &updatedAt, &score); err != nil {
			return nil, fmt.Errorf("scan similarity row: %w", err)
		}
		var metadata domain.ChunkMetadata
		_ = json.Unmarshal(metadataRaw, &metadata)
		rank++
		out = append(out, domain.RetrievedChunk{
			ChunkID:         domain.ID(chunkID),
			Content:         content,
			SimilarityScore: score,
			Rank:            rank,
			RetrievalMethod: "vector",
			DocumentID:      domain.ID(docID),
			Metadata:        metadata,
			QualityScore:    &quality,
			Vector:          vec.Slice(),
			EmbeddingModel:  model,
			CreatedAt:       &createdAt,
			UpdatedAt:       &updatedAt,
		})
	}
	return out, rows.Err()
}

func (p *postgresStore) SearchByDocument(ctx context.Context, documentID domain.ID, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := p.pool.Query(ctx, `SELECT chunk_id, document_id, content, vec, model, metadata, embedding_quality_score, created_at, updated_at
		FROM embeddings WHERE document_id = $1 ORDER BY (metadata->>'ChunkIndex')::int LIMIT $2`, documentID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("document scan: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	rank := 0
	for rows.Next() {
		var (
			chunkID, docID, model string
			content               string
			vec                   pgvector.Vector
			metadataRaw           []byte
			quality               float64
			createdAt, updatedAt  time.Time
		)
		if err := rows.Scan(&chunkID, &docID, &content, &vec, &model, &metadataRaw, &quality, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		var metadata domain.ChunkMetadata
		_ = json.Unmarshal(metadataRaw, &metadata)
		rank++
		out = append(out, domain.RetrievedChunk{
			ChunkID:         domain.ID(chunkID),
			Content:         content,
			RetrievalMethod: "document_scan",
			Rank:            rank,
			DocumentID:      domain.ID(docID),
			Metadata:        metadata,
			QualityScore:    &quality,
			Vector:          vec.Slice(),
			EmbeddingModel:  model,
			CreatedAt:       &createdAt,
			UpdatedAt:       &updatedAt,
		})
	}
	return out, rows.Err()
}

func (p *postgresStore) CheckDuplicateContent(ctx context.Context, documentID domain.ID, content string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM embeddings WHERE document_id = $1 AND content_hash = $2)`,
		documentID.String(), contentHash(content)).Scan(&exists)
	return exists, err
}

func (p *postgresStore) Close() error {
	p.pool.Close()
	return nil
}
