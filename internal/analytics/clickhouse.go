// Package analytics appends one row per completed query to an analytics
// sink, decoupled from the query path so an unreachable sink never fails a
// request; failures only get logged.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/sirupsen/logrus"
)

// Sink records one completed query's metrics for offline analysis.
type Sink interface {
	RecordQuery(ctx context.Context, traceID string, metadata domain.QueryGenerationMetadata) error
}

// ClickHouseSink appends QueryGenerationMetadata rows to an
// append-only table, grounded on the teacher's clickhouse.Open/conn.Exec
// usage for its own token-metrics and trace tables.
type ClickHouseSink struct {
	conn  clickhouse.Conn
	table string
	log   logrus.FieldLogger
}

// NewClickHouseSink opens a connection from dsn and ensures the target
// table exists; table defaults to "ragserve_query_metrics".
func NewClickHouseSink(ctx context.Context, dsn, table string, log logrus.FieldLogger) (*ClickHouseSink, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if table == "" {
		table = "ragserve_query_metrics"
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	sink := &ClickHouseSink{conn: conn, table: table, log: log}
	if err := sink.ensureTable(ctx); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *ClickHouseSink) ensureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		trace_id String,
		query_id String,
		model String,
		chunks_retrieved UInt32,
		total_tokens_used UInt32,
		total_latency_ms Float64,
		embedding_latency_ms Float64,
		retrieval_latency_ms Float64,
		generation_latency_ms Float64,
		recorded_at DateTime
	) ENGINE = MergeTree() ORDER BY recorded_at`, s.table)
	return s.conn.Exec(ctx, stmt)
}

// RecordQuery inserts one row; callers should treat a returned error as
// non-fatal to the query path (log and move on).
func (s *ClickHouseSink) RecordQuery(ctx context.Context, traceID string, m domain.QueryGenerationMetadata) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		return fmt.Errorf("prepare clickhouse batch: %w", err)
	}
	if err := batch.Append(
		traceID,
		domain.NewID().String(),
		m.Model,
		uint32(m.ChunksRetrieved),
		uint32(m.TotalTokensUsed),
		m.TotalLatencyMS,
		m.EmbeddingLatencyMS,
		m.RetrievalLatencyMS,
		m.GenerationLatencyMS,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("append clickhouse row: %w", err)
	}
	return batch.Send()
}

// NoopSink discards every record; used when no ClickHouse DSN is
// configured, so the query path never needs a nil check.
type NoopSink struct{}

func (NoopSink) RecordQuery(context.Context, string, domain.QueryGenerationMetadata) error { return nil }
