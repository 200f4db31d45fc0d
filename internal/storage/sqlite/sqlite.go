package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	failed_stage TEXT,
	error TEXT,
	title TEXT,
	article TEXT,
	sources TEXT NOT NULL,
	considered INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, run *storage.Run) error {
	sourcesJSON, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("sqlite: encode sources: %w", err)
	}

	query := `
	INSERT INTO runs (
		id, topic, mode, status, failed_stage, error, title, article, sources, considered, skipped, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		run.ID,
		run.Topic,
		run.Mode,
		string(run.Status),
		run.FailedStage,
		run.Error,
		run.Title,
		run.Article,
		string(sourcesJSON),
		run.Considered,
		run.Skipped,
		run.Duration.Milliseconds(),
		run.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save run: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Run, error) {
	query := `SELECT id, topic, mode, status, failed_stage, error, title, article, sources, considered, skipped, duration_ms, created_at FROM runs WHERE 1=1`
	args := []any{}

	if filter.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, filter.Topic)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC, rowid DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query runs: %w", err)
	}
	defer rows.Close()

	var results []*storage.Run
	for rows.Next() {
		var r storage.Run
		var status, sourcesJSON string
		var failedStage, errText, title, article sql.NullString
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Topic, &r.Mode, &status, &failedStage, &errText, &title, &article,
			&sourcesJSON, &r.Considered, &r.Skipped, &durationMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan run: %w", err)
		}

		r.Status = storage.Status(status)
		r.FailedStage = failedStage.String
		r.Error = errText.String
		r.Title = title.String
		r.Article = article.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(sourcesJSON), &r.Sources); err != nil {
			return nil, fmt.Errorf("sqlite: decode sources: %w", err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate runs: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
