package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/ytmerge/internal/config"
	"github.com/your-org/ytmerge/internal/models"
)

// PostgresStore is the conversion ledger.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id          UUID PRIMARY KEY,
	cache_key   TEXT NOT NULL,
	content_id  TEXT NOT NULL,
	title       TEXT NOT NULL,
	quality     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversions_content_id_idx ON conversions (content_id, created_at DESC);
CREATE INDEX IF NOT EXISTS conversions_created_at_idx ON conversions (created_at DESC);
`

// EnsureSchema creates the ledger table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RecordConversion inserts ev, assigning an ID and timestamp when unset.
func (s *PostgresStore) RecordConversion(ctx context.Context, ev *models.ConversionEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversions (id, cache_key, content_id, title, quality, outcome, error, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.CacheKey, ev.ContentID, ev.Title, ev.Quality,
		string(ev.Outcome), ev.Error, ev.DurationMs, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	return nil
}

// ListConversions returns the newest conversions, optionally for one content ID.
func (s *PostgresStore) ListConversions(ctx context.Context, contentID string, limit int) ([]models.ConversionEvent, error) {
	limit = clampLimit(limit)

	query := `SELECT id, cache_key, content_id, title, quality, outcome, error, duration_ms, created_at FROM conversions`
	args := []any{}
	if contentID != "" {
		query += " WHERE content_id = $1"
		args = append(args, contentID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ConversionEvent, error) {
		var ev models.ConversionEvent
		var outcome string
		err := row.Scan(&ev.ID, &ev.CacheKey, &ev.ContentID, &ev.Title, &ev.Quality,
			&outcome, &ev.Error, &ev.DurationMs, &ev.Timestamp)
		ev.Outcome = models.ConversionOutcome(outcome)
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan conversions: %w", err)
	}
	return events, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
