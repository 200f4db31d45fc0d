package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/bypass"
	"github.com/TheNovakAI/google-search-blogger/internal/metrics"
	"github.com/TheNovakAI/google-search-blogger/pkg/httpclient"
	"github.com/TheNovakAI/google-search-blogger/pkg/useragent"
)

var (
	// ErrFetch marks every per-URL fetch failure. It is soft: the URL is
	// dropped and the run continues.
	ErrFetch = errors.New("fetch failed")
	// ErrNoContent is returned when a page was retrieved but holds no
	// relevant text.
	ErrNoContent = errors.New("no relevant content")
)

// FetchError describes why one URL produced no content.
type FetchError struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// Page is the HTTP-level outcome of fetching one URL.
type Page struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	// MaxBodyBytes caps how much of a response body is read (0 = 5 MiB).
	MaxBodyBytes int64
	UAPool       *useragent.Pool
	// RespectRobots skips URLs disallowed by the host's robots.txt.
	RespectRobots bool
	Transport     http.RoundTripper
}

// Fetcher performs single URL fetches. One client is held for the lifetime of
// the Fetcher so connections and cookies are reused across URLs.
type Fetcher struct {
	config  FetchConfig
	client  *httpclient.Client
	logger  *slog.Logger
	auditor *RobotsTxtAuditor
}

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5 << 20
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: create client: %w", err)
	}

	f := &Fetcher{
		config: cfg,
		client: client,
		logger: logger,
	}
	if cfg.RespectRobots {
		f.auditor = NewRobotsTxtAuditor(f, logger)
	}
	return f, nil
}

// Fetch retrieves targetURL. Transport errors, non-2xx statuses, robots.txt
// denials and bot-challenge interstitials all yield a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	u, err := url.Parse(targetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &FetchError{URL: targetURL, Reason: "invalid url", Err: err}
	}

	ua := f.config.UAPool.Next()

	if f.auditor != nil {
		allowed, err := f.auditor.IsAllowed(ctx, targetURL, ua)
		if err != nil {
			f.logger.Warn("robots.txt check failed", "url", targetURL, "err", err)
		} else if !allowed {
			metrics.RecordFetch(u.Hostname(), "robots_denied")
			return nil, &FetchError{URL: targetURL, Reason: "disallowed by robots.txt"}
		}
	}

	page, err := f.get(ctx, targetURL, ua)
	if err != nil {
		metrics.RecordFetch(u.Hostname(), "error")
		return nil, &FetchError{URL: targetURL, Reason: "request failed", Err: err}
	}
	metrics.ObserveFetch(u.Hostname(), page.Duration, len(page.Body))

	if detected, src := bypass.Analyze(&bypass.Response{
		StatusCode: page.StatusCode,
		Headers:    page.Headers,
		Body:       page.Body,
	}, bypass.DefaultDetectors()); detected {
		metrics.RecordFetch(u.Hostname(), "challenged")
		return nil, &FetchError{URL: targetURL, StatusCode: page.StatusCode, Reason: "bot challenge by " + src}
	}

	if page.StatusCode < 200 || page.StatusCode > 299 {
		metrics.RecordFetch(u.Hostname(), "bad_status")
		return nil, &FetchError{URL: targetURL, StatusCode: page.StatusCode, Reason: "non-success status"}
	}

	metrics.RecordFetch(u.Hostname(), "ok")
	return page, nil
}

// get performs the bare GET without policy checks.
func (f *Fetcher) get(ctx context.Context, targetURL, ua string) (*Page, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
