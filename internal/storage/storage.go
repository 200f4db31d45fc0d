package storage

import (
	"context"
	"sort"
	"time"
)

// Status is the terminal state of a pipeline run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the terminal record of one pipeline run. Intermediate artifacts
// (raw pages, extracts) are never stored.
type Run struct {
	ID     string `json:"id"`
	Topic  string `json:"topic"`
	Mode   string `json:"mode"`
	Status Status `json:"status"`
	// FailedStage names the stage that ended a failed run.
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
	Title       string `json:"title,omitempty"`
	// Article is the Markdown body of a completed run.
	Article string   `json:"article,omitempty"`
	Sources []string `json:"sources,omitempty"`
	// Considered is how many result URLs were processed; Skipped how many
	// of them produced no extract.
	Considered int           `json:"considered"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Filter allows querying for specific Runs.
type Filter struct {
	Topic  string
	Status Status
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for storing and querying run history.
type Backend interface {
	Save(ctx context.Context, run *Run) error
	Query(ctx context.Context, filter Filter) ([]*Run, error)
	Close() error
}

// Matches reports whether r passes the filter's predicates (not paging).
func (f Filter) Matches(r *Run) bool {
	if f.Topic != "" && r.Topic != f.Topic {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page orders runs newest first and applies Offset and Limit. It is used by
// backends that filter in memory.
func (f Filter) Page(runs []*Run) []*Run {
	out := make([]*Run, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		out = append(out, runs[i])
	}
	// Stable, so runs saved in the same instant keep reverse insertion order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*Run{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}
