package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSerpAPI_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "go generics & iterators" {
			t.Errorf("expected encoded query, got %q", q.Get("q"))
		}
		if q.Get("num") != "2" || q.Get("api_key") != "secret" {
			t.Errorf("unexpected params %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic_results":[
			{"position":1,"title":"One","link":"https://a.example/1"},
			{"position":2,"title":"No link"},
			{"position":3,"title":"Two","link":"https://b.example/2","snippet":"s"},
			{"position":4,"title":"Three","link":"https://c.example/3"}
		]}`))
	}))
	defer ts.Close()

	provider, err := NewSerpAPI(SerpAPIConfig{APIKey: "secret", BaseURL: ts.URL}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := provider.Search(context.Background(), "go generics & iterators", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://a.example/1" || results[1].URL != "https://b.example/2" {
		t.Errorf("expected ranking order with linkless records skipped, got %+v", results)
	}
	if results[1].Snippet != "s" || results[1].Position != 3 {
		t.Errorf("expected metadata to be carried, got %+v", results[1])
	}
}

func TestSerpAPI_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "bad status", status: http.StatusUnauthorized, body: `{"error":"Invalid API key"}`, wantErr: "unexpected status 401"},
		{name: "malformed", status: http.StatusOK, body: `{"organic_results":[`, wantErr: "decode response"},
		{name: "provider error", status: http.StatusOK, body: `{"error":"Your account has run out of searches."}`, wantErr: "provider error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			provider, _ := NewSerpAPI(SerpAPIConfig{APIKey: "k", BaseURL: ts.URL}, nil)
			_, err := provider.Search(context.Background(), "topic", 20)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSerpAPI_NoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	}))
	defer ts.Close()

	provider, _ := NewSerpAPI(SerpAPIConfig{APIKey: "k", BaseURL: ts.URL}, nil)
	results, err := provider.Search(context.Background(), "zxqv", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSerpAPI_Validation(t *testing.T) {
	if _, err := NewSerpAPI(SerpAPIConfig{}, nil); err == nil {
		t.Error("expected missing api key error")
	}

	provider, _ := NewSerpAPI(SerpAPIConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, nil)
	if _, err := provider.Search(context.Background(), "   ", 10); err == nil {
		t.Error("expected empty query error")
	}
	if _, err := provider.Search(context.Background(), "topic", -1); err == nil {
		t.Error("expected negative limit error")
	}
}
