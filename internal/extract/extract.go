package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheNovakAI/google-search-blogger/internal/llm"
	"github.com/TheNovakAI/google-search-blogger/internal/metrics"
	"github.com/TheNovakAI/google-search-blogger/internal/scraper"
)

// ErrExtraction marks a per-URL extraction failure. It is soft: the item is
// dropped and never replaced by placeholder text.
var ErrExtraction = errors.New("extraction failed")

// Default model settings for extraction calls.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 4096
)

// Strategy selects the instruction pair sent to the model.
type Strategy string

const (
	// StrategyFilter keeps main text, key terms and citable metadata of
	// curated content and drops boilerplate.
	StrategyFilter Strategy = "filter"
	// StrategyVerbatim extracts topic-relevant material, keeping quotes,
	// statistics and key phrases exactly as written.
	StrategyVerbatim Strategy = "verbatim"
	// StrategyRawFilter is StrategyFilter over full markup.
	StrategyRawFilter Strategy = "raw"
)

// Extract is the relevance-filtered text of one source.
type Extract struct {
	URL      string
	Text     string
	Strategy Strategy
	// Truncated is set when the model stopped at the token bound.
	Truncated bool
	// Quotes lists the verified verbatim quotes (StrategyVerbatim only).
	Quotes []string
}

// Error is an ExtractionFailure for one URL.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// Config holds the model settings for extraction calls.
type Config struct {
	Model     string
	MaxTokens int
}

// Extractor runs one Strategy against a Completer.
type Extractor struct {
	completer llm.Completer
	strategy  Strategy
	cfg       Config
	logger    *slog.Logger
}

// New returns an Extractor. Zero Config fields take the package defaults.
func New(c llm.Completer, strategy Strategy, cfg Config, logger *slog.Logger) *Extractor {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{completer: c, strategy: strategy, cfg: cfg, logger: logger}
}

// Extract filters rc through the model. topic is required by
// StrategyVerbatim and ignored otherwise. Every failure is an *Error.
func (e *Extractor) Extract(ctx context.Context, rc *scraper.RawContent, topic string) (*Extract, error) {
	out, err := e.extract(ctx, rc, topic)
	if err != nil {
		metrics.RecordExtraction(string(e.strategy), "failed")
		return nil, err
	}
	metrics.RecordExtraction(string(e.strategy), "ok")
	return out, nil
}

func (e *Extractor) extract(ctx context.Context, rc *scraper.RawContent, topic string) (*Extract, error) {
	if rc == nil || strings.TrimSpace(rc.Text) == "" {
		u := ""
		if rc != nil {
			u = rc.URL
		}
		return nil, &Error{URL: u, Err: errors.New("empty content")}
	}
	topic = strings.TrimSpace(topic)
	if e.strategy == StrategyVerbatim && topic == "" {
		return nil, &Error{URL: rc.URL, Err: errors.New("verbatim extraction requires a topic")}
	}

	user := userPrompt(e.strategy, rc, topic)
	e.logger.Debug("extracting", "url", rc.URL, "strategy", e.strategy, "prompt_bytes", len(user))

	c, err := e.completer.Complete(ctx, llm.Request{
		Op:        "extract",
		Model:     e.cfg.Model,
		System:    systemPrompt(e.strategy),
		User:      user,
		MaxTokens: e.cfg.MaxTokens,
	})
	if err != nil {
		return nil, &Error{URL: rc.URL, Err: err}
	}
	if c == nil || strings.TrimSpace(c.Text) == "" {
		return nil, &Error{URL: rc.URL, Err: llm.ErrEmptyCompletion}
	}
	if c.Truncated() {
		e.logger.Warn("extract truncated at token bound", "url", rc.URL, "max_tokens", e.cfg.MaxTokens)
	}

	out := &Extract{
		URL:       rc.URL,
		Text:      strings.TrimSpace(c.Text),
		Strategy:  e.strategy,
		Truncated: c.Truncated(),
	}

	switch e.strategy {
	case StrategyVerbatim:
		cleaned, unverified := VerifyQuotes(out.Text, rc.Text)
		for _, q := range unverified {
			e.logger.Warn("quote not found in source, kept as paraphrase", "url", rc.URL, "quote", q)
		}
		out.Text = cleaned
		out.Quotes = Quotes(cleaned)
	default:
		out.Text = StripMarkers(out.Text)
	}
	return out, nil
}
