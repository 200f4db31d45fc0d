package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/TheNovakAI/google-search-blogger/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a new NDJSON-backed storage.Backend, one run per line.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("jsonbackend: open: %w", err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

func (b *jsonBackend) Save(ctx context.Context, run *storage.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("jsonbackend: encode run: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonbackend: write run: %w", err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("jsonbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	// Articles can exceed bufio's default 64 KiB line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	// NDJSON has no engine: read everything, filter in memory, then page.
	var matched []*storage.Run
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r storage.Run
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("jsonbackend: decode run: %w", err)
		}
		if filter.Matches(&r) {
			matched = append(matched, &r)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonbackend: read: %w", err)
	}

	return filter.Page(matched), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
