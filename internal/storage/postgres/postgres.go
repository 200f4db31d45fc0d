package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	article TEXT NOT NULL DEFAULT '',
	sources TEXT[] NOT NULL DEFAULT '{}',
	considered INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, run *storage.Run) error {
	sources := run.Sources
	if sources == nil {
		sources = []string{}
	}

	query := `
	INSERT INTO runs (
		id, topic, mode, status, failed_stage, error, title, article, sources, considered, skipped, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := b.pool.Exec(ctx, query,
		run.ID,
		run.Topic,
		run.Mode,
		string(run.Status),
		run.FailedStage,
		run.Error,
		run.Title,
		run.Article,
		sources,
		run.Considered,
		run.Skipped,
		run.Duration.Milliseconds(),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save run: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Run, error) {
	query := `SELECT id, topic, mode, status, failed_stage, error, title, article, sources, considered, skipped, duration_ms, created_at FROM runs WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Topic != "" {
		query += fmt.Sprintf(` AND topic = $%d`, paramCount)
		args = append(args, filter.Topic)
		paramCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, paramCount)
		args = append(args, string(filter.Status))
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query runs: %w", err)
	}
	defer rows.Close()

	var results []*storage.Run
	for rows.Next() {
		var r storage.Run
		var status string
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Topic, &r.Mode, &status, &r.FailedStage, &r.Error, &r.Title, &r.Article,
			&r.Sources, &r.Considered, &r.Skipped, &durationMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}

		r.Status = storage.Status(status)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if len(r.Sources) == 0 {
			r.Sources = nil
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate runs: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
