package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"topic",
	"mode",
	"status",
	"failed_stage",
	"error",
	"title",
	"article",
	"sources",
	"considered",
	"skipped",
	"duration_ms",
	"created_at",
}

// sourceSep joins source URLs in one cell; URLs never contain spaces.
const sourceSep = " "

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, run *storage.Run) error {
	record := []string{
		run.ID,
		run.Topic,
		run.Mode,
		string(run.Status),
		run.FailedStage,
		run.Error,
		run.Title,
		run.Article,
		strings.Join(run.Sources, sourceSep),
		strconv.Itoa(run.Considered),
		strconv.Itoa(run.Skipped),
		strconv.FormatInt(run.Duration.Milliseconds(), 10),
		run.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csvbackend: write run: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: write run: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.Run{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read header: %w", err)
	}

	var matched []*storage.Run
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: read run: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		considered, _ := strconv.Atoi(record[9])
		skipped, _ := strconv.Atoi(record[10])
		durationMs, _ := strconv.ParseInt(record[11], 10, 64)
		createdAt, _ := time.Parse(time.RFC3339Nano, record[12])

		var sources []string
		if record[8] != "" {
			sources = strings.Split(record[8], sourceSep)
		}

		run := &storage.Run{
			ID:          record[0],
			Topic:       record[1],
			Mode:        record[2],
			Status:      storage.Status(record[3]),
			FailedStage: record[4],
			Error:       record[5],
			Title:       record[6],
			Article:     record[7],
			Sources:     sources,
			Considered:  considered,
			Skipped:     skipped,
			Duration:    time.Duration(durationMs) * time.Millisecond,
			CreatedAt:   createdAt,
		}

		if filter.Matches(run) {
			matched = append(matched, run)
		}
	}

	return filter.Page(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
