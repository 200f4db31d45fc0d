package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/pipeline"
	"github.com/TheNovakAI/google-search-blogger/internal/synth"
)

type generatorFunc func(ctx context.Context, topic string) (*pipeline.Result, error)

func (f generatorFunc) Run(ctx context.Context, topic string) (*pipeline.Result, error) {
	return f(ctx, topic)
}

func newTestServer(gen Generator) *httptest.Server {
	s := NewServer(gen, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return httptest.NewServer(s.Handler())
}

func post(t *testing.T, ts *httptest.Server, topic string) (int, string) {
	t.Helper()
	resp, err := http.PostForm(ts.URL+"/generate", url.Values{"topic": {topic}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServer_Form(t *testing.T) {
	ts := newTestServer(generatorFunc(func(context.Context, string) (*pipeline.Result, error) {
		t.Error("form page must not run the pipeline")
		return nil, nil
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `name="topic"`) || !strings.Contains(string(body), ">Generate</button>") {
		t.Errorf("expected topic input and generate button, got %s", body)
	}

	resp2, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", resp2.StatusCode)
	}
}

func TestServer_Generate(t *testing.T) {
	var gotTopic string
	ts := newTestServer(generatorFunc(func(_ context.Context, topic string) (*pipeline.Result, error) {
		gotTopic = topic
		return &pipeline.Result{
			Topic:   topic,
			Article: &synth.Article{Title: "Rust", Body: "# Rust\n\nFast <b>and</b> safe."},
			Sources: []string{"https://a.example", "https://b.example"},
			Skipped: []pipeline.Skipped{{URL: "https://c.example", Stage: "fetch"}},
		}, nil
	}))
	defer ts.Close()

	status, body := post(t, ts, "rust <lang>")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if gotTopic != "rust <lang>" {
		t.Errorf("unexpected topic %q", gotTopic)
	}
	if !strings.Contains(body, "<h1>Rust</h1>") {
		t.Errorf("expected rendered article, got %s", body)
	}
	if strings.Contains(body, "<b>and</b>") {
		t.Error("raw HTML from the article must not be rendered")
	}
	if !strings.Contains(body, `value="rust &lt;lang&gt;"`) {
		t.Errorf("expected escaped topic echoed back, got %s", body)
	}
	if !strings.Contains(body, "2 sources used, 1 skipped.") {
		t.Errorf("expected source counts, got %s", body)
	}
}

func TestServer_GenerateRendersTitle(t *testing.T) {
	ts := newTestServer(generatorFunc(func(_ context.Context, topic string) (*pipeline.Result, error) {
		return &pipeline.Result{
			Topic:   topic,
			Article: &synth.Article{Title: "Rust async", Body: "Futures are lazy."},
			Sources: []string{"https://a.example"},
		}, nil
	}))
	defer ts.Close()

	status, body := post(t, ts, "Rust async")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "<h1>Rust async</h1>") {
		t.Errorf("expected title heading, got %s", body)
	}
	if !strings.Contains(body, "<p>Futures are lazy.</p>") {
		t.Errorf("expected rendered body, got %s", body)
	}
}

func TestServer_GenerateStageError(t *testing.T) {
	ts := newTestServer(generatorFunc(func(context.Context, string) (*pipeline.Result, error) {
		return &pipeline.Result{}, &pipeline.StageError{Stage: pipeline.StageNoContent}
	}))
	defer ts.Close()

	status, body := post(t, ts, "topic")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "no valid content could be extracted from the search results") {
		t.Errorf("expected stage message, got %s", body)
	}
	if strings.Contains(body, "<article>") {
		t.Error("no article expected on failure")
	}
}

func TestServer_GenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"empty topic", pipeline.ErrEmptyTopic, http.StatusBadRequest, "Please enter a topic."},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Article generation failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(generatorFunc(func(context.Context, string) (*pipeline.Result, error) {
				return nil, tt.err
			}))
			defer ts.Close()

			status, body := post(t, ts, "")
			if status != tt.status {
				t.Errorf("expected %d, got %d", tt.status, status)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("expected %q in body, got %s", tt.want, body)
			}
			if strings.Contains(body, "boom") {
				t.Error("internal error detail must not leak to the page")
			}
		})
	}
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(generatorFunc(func(context.Context, string) (*pipeline.Result, error) {
		return nil, pipeline.ErrEmptyTopic
	}), slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
