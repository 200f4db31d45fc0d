package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TheNovakAI/google-search-blogger/internal/analyzer"
	"github.com/TheNovakAI/google-search-blogger/internal/extract"
	"github.com/TheNovakAI/google-search-blogger/internal/llm"
	"github.com/TheNovakAI/google-search-blogger/internal/metrics"
	"github.com/TheNovakAI/google-search-blogger/internal/scraper"
	"github.com/TheNovakAI/google-search-blogger/internal/serp"
	"github.com/TheNovakAI/google-search-blogger/internal/storage"
	"github.com/TheNovakAI/google-search-blogger/internal/synth"
)

// ContentFetcher turns a URL into RawContent. A nil error implies non-empty
// content.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.RawContent, error)
}

// Extractor filters one page's content through the model.
type Extractor interface {
	Extract(ctx context.Context, rc *scraper.RawContent, topic string) (*extract.Extract, error)
}

// Synthesizer merges extracts into the final article.
type Synthesizer interface {
	Synthesize(ctx context.Context, extracts []*extract.Extract, topic string) (*synth.Article, error)
}

// Config tunes a Pipeline.
type Config struct {
	Mode Mode
	// Limit caps how many ranked results are processed (0 = mode default).
	Limit int
	// Concurrency is how many URLs are fetched and extracted at once.
	// Values below 2 process URLs one at a time in ranking order.
	Concurrency int
}

// Deps are the stage implementations a Pipeline sequences.
type Deps struct {
	Search      serp.SERPProvider
	Fetcher     ContentFetcher
	Extractor   Extractor
	Synthesizer Synthesizer
	// Backend, when set, receives one Run record per finished run.
	Backend storage.Backend
}

// Models selects model names and response bounds for both model calls.
type Models struct {
	ExtractModel     string
	ExtractMaxTokens int
	SynthModel       string
	SynthMaxTokens   int
}

// Skipped records a URL that produced no extract.
type Skipped struct {
	URL string `json:"url"`
	// Stage is "fetch" or "extract".
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result is the outcome of one run. On failure it still carries what was
// learned before the failing stage.
type Result struct {
	RunID      string            `json:"run_id"`
	Topic      string            `json:"topic"`
	Mode       Mode              `json:"mode"`
	Article    *synth.Article    `json:"article,omitempty"`
	Sources    []string          `json:"sources,omitempty"`
	Considered int               `json:"considered"`
	Skipped    []Skipped         `json:"skipped,omitempty"`
	Coverage   analyzer.Coverage `json:"coverage"`
	Duration   time.Duration     `json:"duration"`
}

// Pipeline runs search, per-URL fetch and extraction, then synthesis.
type Pipeline struct {
	cfg       Config
	search    serp.SERPProvider
	fetcher   ContentFetcher
	extractor Extractor
	synth     Synthesizer
	backend   storage.Backend
	logger    *slog.Logger
}

// New validates cfg and deps and returns a Pipeline.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Pipeline, error) {
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("pipeline: limit cannot be negative: %d", cfg.Limit)
	}
	if cfg.Limit == 0 {
		cfg.Limit = mode.DefaultLimit()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	switch {
	case deps.Search == nil:
		return nil, errors.New("pipeline: search provider is nil")
	case deps.Fetcher == nil:
		return nil, errors.New("pipeline: content fetcher is nil")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is nil")
	case deps.Synthesizer == nil:
		return nil, errors.New("pipeline: synthesizer is nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		cfg:       cfg,
		search:    deps.Search,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		synth:     deps.Synthesizer,
		backend:   deps.Backend,
		logger:    logger,
	}, nil
}

// Compose builds a Pipeline whose fetch and extraction strategies are the
// pair selected by cfg.Mode, sharing one fetcher and one completer.
func Compose(cfg Config, search serp.SERPProvider, fetcher *scraper.Fetcher, completer llm.Completer, models Models, backend storage.Backend, logger *slog.Logger) (*Pipeline, error) {
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if fetcher == nil || completer == nil {
		return nil, errors.New("pipeline: fetcher and completer are required")
	}

	return New(cfg, Deps{
		Search:  search,
		Fetcher: scraper.NewContentFetcher(fetcher, mode.FetchStrategy()),
		Extractor: extract.New(completer, mode.ExtractStrategy(), extract.Config{
			Model:     models.ExtractModel,
			MaxTokens: models.ExtractMaxTokens,
		}, logger),
		Synthesizer: synth.New(completer, synth.Config{
			Model:     models.SynthModel,
			MaxTokens: models.SynthMaxTokens,
		}, logger),
		Backend: backend,
	}, logger)
}

// Mode reports the configured mode.
func (p *Pipeline) Mode() Mode {
	return p.cfg.Mode
}

// Run executes one pipeline run for topic. Fatal failures are returned as
// *StageError together with the partial Result; per-URL failures are only
// listed in Result.Skipped.
func (p *Pipeline) Run(ctx context.Context, topic string) (*Result, error) {
	topic = strings.Join(strings.Fields(topic), " ")
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	start := time.Now()
	res := &Result{
		RunID: uuid.NewString(),
		Topic: topic,
		Mode:  p.cfg.Mode,
	}
	logger := p.logger.With("run_id", res.RunID, "mode", string(p.cfg.Mode))

	err := p.run(ctx, logger, res)
	res.Duration = time.Since(start)
	p.finish(ctx, logger, res, start, err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, res *Result) error {
	logger.Info("searching", "topic", res.Topic, "limit", p.cfg.Limit)
	stageStart := time.Now()
	results, err := p.search.Search(ctx, res.Topic, p.cfg.Limit)
	metrics.ObserveStage("search", time.Since(stageStart))
	if err != nil {
		return &StageError{Stage: StageSearch, Err: err}
	}

	urls := topURLs(results, p.cfg.Limit)
	if len(urls) == 0 {
		return &StageError{Stage: StageNoResults}
	}
	res.Considered = len(urls)

	logger.Info("processing results", "urls", len(urls), "concurrency", p.cfg.Concurrency)
	stageStart = time.Now()
	extracts, skipped := p.process(ctx, logger, urls, res.Topic)
	metrics.ObserveStage("process", time.Since(stageStart))
	res.Skipped = skipped

	if len(extracts) == 0 {
		return &StageError{Stage: StageNoContent}
	}
	for _, e := range extracts {
		res.Sources = append(res.Sources, e.URL)
	}

	synthTopic := ""
	if p.cfg.Mode.TopicToSynthesizer() {
		synthTopic = res.Topic
	}

	logger.Info("synthesizing", "extracts", len(extracts), "skipped", len(skipped))
	stageStart = time.Now()
	article, err := p.synth.Synthesize(ctx, extracts, synthTopic)
	metrics.ObserveStage("synthesis", time.Since(stageStart))
	if err != nil {
		return &StageError{Stage: StageSynthesis, Err: err}
	}
	res.Article = article

	res.Coverage = analyzer.MeasureCoverage(article.Body, res.Topic)
	logger.Info("article ready",
		"title", article.Title,
		"sources", len(res.Sources),
		"keyword_coverage", res.Coverage.Ratio,
		"missing_terms", res.Coverage.Missing,
	)
	return nil
}

type outcome struct {
	extract *extract.Extract
	skipped *Skipped
}

// process fetches and extracts every URL. Results are merged in ranking
// order whatever the concurrency.
func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, urls []string, topic string) ([]*extract.Extract, []Skipped) {
	outcomes := make([]outcome, len(urls))

	if p.cfg.Concurrency <= 1 {
		for i, u := range urls {
			outcomes[i] = p.processOne(ctx, logger, u, topic)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.cfg.Concurrency)
		for i, u := range urls {
			g.Go(func() error {
				outcomes[i] = p.processOne(ctx, logger, u, topic)
				return nil
			})
		}
		_ = g.Wait()
	}

	extracts := make([]*extract.Extract, 0, len(urls))
	var skipped []Skipped
	for _, o := range outcomes {
		if o.extract != nil {
			extracts = append(extracts, o.extract)
		} else if o.skipped != nil {
			skipped = append(skipped, *o.skipped)
		}
	}
	return extracts, skipped
}

func (p *Pipeline) processOne(ctx context.Context, logger *slog.Logger, u, topic string) outcome {
	rc, err := p.fetcher.Fetch(ctx, u)
	if err == nil && (rc == nil || strings.TrimSpace(rc.Text) == "") {
		err = &scraper.FetchError{URL: u, Reason: "empty page", Err: scraper.ErrNoContent}
	}
	if err != nil {
		logger.Warn("skipping url", "url", u, "stage", "fetch", "err", err)
		return outcome{skipped: &Skipped{URL: u, Stage: "fetch", Reason: err.Error(), Err: err}}
	}

	ex, err := p.extractor.Extract(ctx, rc, topic)
	if err == nil && (ex == nil || strings.TrimSpace(ex.Text) == "") {
		err = &extract.Error{URL: u, Err: llm.ErrEmptyCompletion}
	}
	if err != nil {
		logger.Warn("skipping url", "url", u, "stage", "extract", "err", err)
		return outcome{skipped: &Skipped{URL: u, Stage: "extract", Reason: err.Error(), Err: err}}
	}
	if ex.URL == "" {
		ex.URL = u
	}

	logger.Debug("extracted", "url", u, "bytes", len(ex.Text))
	return outcome{extract: ex}
}

// finish records the terminal state of a run.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, res *Result, start time.Time, runErr error) {
	run := &storage.Run{
		ID:         res.RunID,
		Topic:      res.Topic,
		Mode:       string(res.Mode),
		Status:     storage.StatusCompleted,
		Considered: res.Considered,
		Skipped:    len(res.Skipped),
		Duration:   res.Duration,
		CreatedAt:  start.UTC(),
	}

	if runErr != nil {
		run.Status = storage.StatusFailed
		run.Error = runErr.Error()
		var se *StageError
		if errors.As(runErr, &se) {
			run.FailedStage = string(se.Stage)
		}
		logger.Error("run failed", "stage", run.FailedStage, "err", runErr, "duration", res.Duration)
	} else {
		run.Title = res.Article.Title
		run.Article = res.Article.Body
		run.Sources = res.Sources
		logger.Info("run completed", "duration", res.Duration)
	}

	metrics.RecordRun(run.Mode, string(run.Status))

	if p.backend == nil {
		return
	}
	if err := p.backend.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to save run", "err", err)
	}
}

// topURLs returns the first limit non-empty result URLs in ranking order.
func topURLs(results []serp.Result, limit int) []string {
	urls := make([]string, 0, min(len(results), limit))
	for _, r := range results {
		if len(urls) == limit {
			break
		}
		if u := strings.TrimSpace(r.URL); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
