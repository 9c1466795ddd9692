package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config selects and configures one Store backend.
type Config struct {
	Backend    string // "memory" | "postgres" | "qdrant"
	DSN        string
	Collection string // qdrant only
	Dimension  int
}

// New resolves a Store from Config, defaulting to the in-memory backend
// when Backend is empty.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres", "pgvector":
		pool, err := openPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres vector store: %w", err)
		}
		return NewPostgresStore(ctx, pool, cfg.Dimension)
	case "qdrant":
		return NewQdrantStore(cfg.DSN, cfg.Collection, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", cfg.Backend)
	}
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = 8
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
