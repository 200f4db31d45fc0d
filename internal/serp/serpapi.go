package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/metrics"
	"github.com/TheNovakAI/google-search-blogger/pkg/httpclient"
)

// DefaultSerpAPIBaseURL is the SerpAPI endpoint root.
const DefaultSerpAPIBaseURL = "https://serpapi.com"

// SerpAPIConfig configures the SerpAPI provider.
type SerpAPIConfig struct {
	APIKey string
	// BaseURL overrides DefaultSerpAPIBaseURL (tests point it at httptest).
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// SerpAPI queries Google through serpapi.com's search.json endpoint.
type SerpAPI struct {
	apiKey  string
	baseURL string
	client  *httpclient.Client
	logger  *slog.Logger
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

// NewSerpAPI builds a provider. An API key is required.
func NewSerpAPI(cfg SerpAPIConfig, logger *slog.Logger) (*SerpAPI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("serp: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSerpAPIBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("serp: create client: %w", err)
	}

	return &SerpAPI{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		logger:  logger,
	}, nil
}

// Search performs one query. Transport errors, non-2xx statuses, provider
// error payloads and malformed bodies are all returned as errors; there is
// no partial result.
func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	results, err := s.search(ctx, query, limit)
	if err != nil {
		metrics.RecordSearch("error", 0)
		return nil, err
	}
	metrics.RecordSearch("ok", len(results))
	return results, nil
}

func (s *SerpAPI) search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("serp: query cannot be empty")
	}
	if limit < 0 {
		return nil, fmt.Errorf("serp: limit cannot be negative: %d", limit)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	if limit > 0 {
		params.Set("num", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serp: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("searching", "query", query, "limit", limit)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("serp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serp: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("serp: decode response: %w", err)
	}
	if decoded.Error != "" {
		// SerpAPI reports "no results" through the error field too.
		if strings.Contains(strings.ToLower(decoded.Error), "hasn't returned any results") {
			return []Result{}, nil
		}
		return nil, fmt.Errorf("serp: provider error: %s", decoded.Error)
	}

	results := make([]Result, 0, len(decoded.OrganicResults))
	for _, r := range decoded.OrganicResults {
		if r.Link == "" {
			continue
		}
		results = append(results, Result{
			URL:      r.Link,
			Title:    r.Title,
			Snippet:  r.Snippet,
			Position: r.Position,
		})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}
