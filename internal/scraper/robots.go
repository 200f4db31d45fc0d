package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/TheNovakAI/google-search-blogger/pkg/useragent"
	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches and caches robots.txt per host.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether a client sending ua may fetch targetURL. A
// missing or unreachable robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, ua string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	host := u.Scheme + "://" + u.Host
	data := r.getOrFetch(ctx, host, ua)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, useragent.ProductToken(ua)), nil
}

func (r *RobotsTxtAuditor) getOrFetch(ctx context.Context, host, ua string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[host]; ok {
		return data
	}

	page, err := r.fetcher.get(ctx, host+"/robots.txt", ua)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "host", host, "err", err)
		r.cache[host] = nil
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		r.logger.Debug("robots.txt unparseable, defaulting to allow", "host", host, "err", err)
		data = nil
	}
	r.cache[host] = data
	return data
}
