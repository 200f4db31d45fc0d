package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TheNovakAI/google-search-blogger/internal/llm"
	"github.com/TheNovakAI/google-search-blogger/internal/scraper"
)

func fakeCompleter(reply string, err error, got *llm.Request) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
		if got != nil {
			*got = req
		}
		if err != nil {
			return nil, err
		}
		return &llm.Completion{Text: reply, FinishReason: "stop"}, nil
	})
}

func TestExtractor_Filter(t *testing.T) {
	var req llm.Request
	ex := New(fakeCompleter("Main points about Go.", nil, &req), StrategyFilter, Config{}, nil)

	rc := &scraper.RawContent{
		URL:  "https://a.example/post",
		Text: "Go Concurrency Channels connect stages.",
		Meta: map[string]string{"og:title": "OG", "description": "About Go"},
	}
	out, err := ex.Extract(context.Background(), rc, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.URL != rc.URL || out.Text != "Main points about Go." || out.Strategy != StrategyFilter {
		t.Errorf("unexpected extract: %+v", out)
	}
	if req.Model != DefaultModel || req.MaxTokens != DefaultMaxTokens || req.Op != "extract" {
		t.Errorf("unexpected request settings: %+v", req)
	}
	if req.System != filterSystemPrompt {
		t.Errorf("expected filter system prompt")
	}
	if !strings.Contains(req.User, "Content: Go Concurrency Channels connect stages.") || !strings.Contains(req.User, "URL: https://a.example/post") {
		t.Errorf("expected content and URL in user prompt, got:\n%s", req.User)
	}
	if strings.Index(req.User, "- description: About Go") > strings.Index(req.User, "- og:title: OG") {
		t.Errorf("expected meta tags in key order, got:\n%s", req.User)
	}
}

func TestExtractor_RawFilter(t *testing.T) {
	var req llm.Request
	ex := New(fakeCompleter("Clean text", nil, &req), StrategyRawFilter, Config{Model: "m", MaxTokens: 10}, nil)

	_, err := ex.Extract(context.Background(), &scraper.RawContent{URL: "https://r.example", Text: "<html>\n <p>\n  hi\n </p>\n</html>"}, "ignored")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.System != rawFilterSystemPrompt || req.Model != "m" || req.MaxTokens != 10 {
		t.Errorf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.User, "HTML:\n<html>") {
		t.Errorf("expected markup in prompt, got:\n%s", req.User)
	}
}

func TestExtractor_Failure(t *testing.T) {
	modelErr := &llm.Error{Op: "extract", StatusCode: 429, Err: errors.New("quota")}
	ex := New(fakeCompleter("", modelErr, nil), StrategyFilter, Config{}, nil)

	out, err := ex.Extract(context.Background(), &scraper.RawContent{URL: "https://a.example", Text: "text"}, "")
	if out != nil {
		t.Errorf("expected no extract on failure, got %+v", out)
	}
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	var exErr *Error
	if !errors.As(err, &exErr) || exErr.URL != "https://a.example" {
		t.Errorf("expected *Error carrying the URL, got %v", err)
	}
	var llmErr *llm.Error
	if !errors.As(err, &llmErr) || llmErr.StatusCode != 429 {
		t.Errorf("expected wrapped *llm.Error, got %v", err)
	}
}

func TestExtractor_EmptyReply(t *testing.T) {
	ex := New(fakeCompleter("  ", nil, nil), StrategyFilter, Config{}, nil)

	_, err := ex.Extract(context.Background(), &scraper.RawContent{URL: "https://a.example", Text: "text"}, "")
	if !errors.Is(err, llm.ErrEmptyCompletion) || !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected empty completion extraction failure, got %v", err)
	}
}

func TestExtractor_VerbatimRequiresTopic(t *testing.T) {
	called := false
	c := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
		called = true
		return &llm.Completion{Text: "x"}, nil
	})
	ex := New(c, StrategyVerbatim, Config{}, nil)

	if _, err := ex.Extract(context.Background(), &scraper.RawContent{URL: "u", Text: "t"}, "  "); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if called {
		t.Errorf("model must not be called without a topic")
	}
}

func TestExtractor_VerbatimQuotesAreContained(t *testing.T) {
	fixtures := []struct {
		source string
		reply  string
		want   []string
	}{
		{
			source: "Rust Survey 2024 The survey received 11,950 responses.   Ferris said: \"Memory safety\n is non-negotiable.\" Other text.",
			reply: "Relevant: [[QUOTE]]The survey received 11,950 responses.[[/QUOTE]] and " +
				"[[QUOTE]]\"Memory safety is non-negotiable.\"[[/QUOTE]] plus " +
				"[[QUOTE]]Rust is used by 90% of developers.[[/QUOTE]]",
			want: []string{"The survey received 11,950 responses.", "\"Memory safety is non-negotiable.\""},
		},
		{
			source: "Heat pumps cut emissions by 40 percent in cold climates, the agency reported.",
			reply:  "[[QUOTE]]Heat pumps cut emissions by 40 percent[[/QUOTE]] according to the agency.",
			want:   []string{"Heat pumps cut emissions by 40 percent"},
		},
	}

	for _, f := range fixtures {
		var req llm.Request
		ex := New(fakeCompleter(f.reply, nil, &req), StrategyVerbatim, Config{}, nil)
		rc := &scraper.RawContent{URL: "https://q.example", Text: f.source}

		out, err := ex.Extract(context.Background(), rc, "statistics")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(req.User, "Topic: statistics") || req.System != verbatimSystemPrompt {
			t.Errorf("expected topic-directed verbatim prompt, got:\n%s", req.User)
		}

		if len(out.Quotes) != len(f.want) {
			t.Fatalf("expected %d verified quotes, got %v", len(f.want), out.Quotes)
		}
		norm := normalizeSpace(f.source)
		for i, q := range Quotes(out.Text) {
			if q != f.want[i] {
				t.Errorf("quote %d: got %q want %q", i, q, f.want[i])
			}
			if !containsQuote(norm, q) {
				t.Errorf("quote %q is not a substring of the source", q)
			}
		}
	}
}

func TestExtractor_FilterStripsMarkers(t *testing.T) {
	ex := New(fakeCompleter("Keep [[QUOTE]]this[[/QUOTE]] text", nil, nil), StrategyFilter, Config{}, nil)

	out, err := ex.Extract(context.Background(), &scraper.RawContent{URL: "u", Text: "this"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "Keep this text" {
		t.Errorf("expected markers stripped, got %q", out.Text)
	}
}
