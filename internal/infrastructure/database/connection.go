package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"checkin/internal/domain"
)

// NewPool creates a pgx connection pool for PostgreSQL.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("database: DATABASE_URL invalide: %v: %w", err, domain.ErrSourceMisconfigured)
	}
	// One connection is held by the LISTEN loop.
	if cfg.MaxConns < 2 {
		cfg.MaxConns = 2
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %v: %w", err, domain.ErrSourceUnavailable)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping: %v: %w", err, domain.ErrSourceUnavailable)
	}
	log.Println("✅ Base de données PostgreSQL connectée.")
	return pool, nil
}
