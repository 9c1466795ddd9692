package debugstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

func artifactTypeFrom(s string) domain.DebugArtifactType {
	return domain.DebugArtifactType(s)
}

// PostgresStore backs artifact capture with a `debug_artifacts` table,
// append/query-by-trace/retention-cleanup, per section 6's persisted-state
// table list.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS debug_artifacts (
	id BIGSERIAL PRIMARY KEY,
	trace_id TEXT NOT NULL,
	artifact_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`)
	if err != nil {
		return nil, fmt.Errorf("create debug_artifacts table: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS debug_artifacts_trace_idx ON debug_artifacts(trace_id, id)`); err != nil {
		return nil, fmt.Errorf("create debug_artifacts trace index: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Append(ctx context.Context, a Artifact) error {
	payload, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("marshal artifact payload: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO debug_artifacts (trace_id, artifact_type, payload, created_at) VALUES ($1, $2, $3, $4)`,
		a.TraceID, string(a.Type), payload, a.Timestamp)
	return err
}

func (s *PostgresStore) ListByTrace(ctx context.Context, traceID string) ([]Artifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT artifact_type, payload, created_at FROM debug_artifacts WHERE trace_id = $1 ORDER BY id ASC`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var artifactType string
		var payload []byte
		var createdAt time.Time
		if err := rows.Scan(&artifactType, &payload, &createdAt); err != nil {
			return nil, err
		}
		var data map[string]any
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, fmt.Errorf("unmarshal artifact payload: %w", err)
		}
		out = append(out, Artifact{TraceID: traceID, Type: artifactTypeFrom(artifactType), Timestamp: createdAt, Data: data})
	}
	return out, rows.Err()
}

func (s *PostgresStore) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM debug_artifacts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
