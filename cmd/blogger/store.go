package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/TheNovakAI/google-search-blogger/internal/storage"
	"github.com/TheNovakAI/google-search-blogger/internal/storage/csvbackend"
	"github.com/TheNovakAI/google-search-blogger/internal/storage/jsonbackend"
	"github.com/TheNovakAI/google-search-blogger/internal/storage/postgres"
	"github.com/TheNovakAI/google-search-blogger/internal/storage/sqlite"
)

// openStore selects a run history backend from dsn's scheme.
func openStore(ctx context.Context, dsn string) (storage.Backend, error) {
	scheme, rest, ok := strings.Cut(dsn, ":")
	if !ok || rest == "" {
		return nil, fmt.Errorf("store: invalid dsn %q (want sqlite:, postgres://, json: or csv:)", dsn)
	}

	switch strings.ToLower(scheme) {
	case "sqlite":
		return sqlite.New(rest)
	case "postgres", "postgresql":
		return postgres.New(ctx, dsn)
	case "json":
		return jsonbackend.New(rest)
	case "csv":
		return csvbackend.New(rest)
	default:
		return nil, fmt.Errorf("store: unsupported scheme %q", scheme)
	}
}
