package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/storage"
)

// RunLine is the one-line view of a stored run.
type RunLine struct {
	ID          string        `json:"id"`
	Topic       string        `json:"topic"`
	Mode        string        `json:"mode"`
	Status      string        `json:"status"`
	FailedStage string        `json:"failed_stage,omitempty"`
	Sources     int           `json:"sources"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Summary contains aggregated metrics about stored pipeline runs.
type Summary struct {
	TotalRuns       int
	Completed       int
	Failed          int
	FailuresByStage map[string]int
	RunsByMode      map[string]int
	TotalConsidered int
	TotalSkipped    int
	TotalSources    int
	AvgDuration     time.Duration
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	Runs            []RunLine
}

// GenerateSummary aggregates runs. Runs keep their input order.
func GenerateSummary(runs []*storage.Run) Summary {
	s := Summary{
		FailuresByStage: make(map[string]int),
		RunsByMode:      make(map[string]int),
	}

	if len(runs) == 0 {
		return s
	}

	s.StartTime = runs[0].CreatedAt
	s.EndTime = runs[0].CreatedAt

	var total time.Duration
	for _, r := range runs {
		s.TotalRuns++
		s.RunsByMode[r.Mode]++
		if r.Status == storage.StatusFailed {
			s.Failed++
			s.FailuresByStage[r.FailedStage]++
		} else {
			s.Completed++
		}
		s.TotalConsidered += r.Considered
		s.TotalSkipped += r.Skipped
		s.TotalSources += len(r.Sources)
		total += r.Duration

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}

		s.Runs = append(s.Runs, RunLine{
			ID:          r.ID,
			Topic:       r.Topic,
			Mode:        r.Mode,
			Status:      string(r.Status),
			FailedStage: r.FailedStage,
			Sources:     len(r.Sources),
			Duration:    r.Duration,
			CreatedAt:   r.CreatedAt,
		})
	}

	s.AvgDuration = total / time.Duration(s.TotalRuns)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

const textTmpl = `Blogger Run History
-------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Runs:          {{.TotalRuns}} ({{.Completed}} completed, {{.Failed}} failed)
Avg Duration:  {{.AvgDuration}}
URLs:          {{.TotalConsidered}} considered, {{.TotalSkipped}} skipped, {{.TotalSources}} cited

Modes:
{{- range $mode, $count := .RunsByMode}}
  {{$mode}}: {{$count}}
{{- else}}
  None
{{- end}}

Failures:
{{- range $stage, $count := .FailuresByStage}}
  {{$stage}}: {{$count}}
{{- else}}
  None
{{- end}}
{{- if .Runs}}

Recent:
{{- range .Runs}}
  {{.CreatedAt.Format "2006-01-02 15:04"}}  {{printf "%-9s" .Status}} {{printf "%-8s" .Mode}} {{.Topic}}{{if .FailedStage}} [{{.FailedStage}}]{{end}}
{{- end}}
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}
