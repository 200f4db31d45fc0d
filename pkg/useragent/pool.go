package useragent

import (
	"strings"
	"sync/atomic"
)

// DefaultPool is used when no User-Agents are configured. Many publishers
// serve an empty shell or a 403 to unknown clients, so page fetches present
// as a current desktop browser.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

// Pool hands out User-Agents round-robin. It is safe for concurrent use.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a pool from uas, ignoring blank entries. An empty result
// falls back to DefaultPool.
func NewPool(uas []string) *Pool {
	cleaned := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua = strings.TrimSpace(ua); ua != "" {
			cleaned = append(cleaned, ua)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultPool...)
	}
	return &Pool{uas: cleaned}
}

// Next returns the next User-Agent in round-robin order.
func (p *Pool) Next() string {
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Len reports how many User-Agents the pool holds.
func (p *Pool) Len() int {
	return len(p.uas)
}

// ProductToken returns the product name of ua ("Mozilla" for browser strings,
// "google-search-blogger" for "google-search-blogger/1.0 (+url)"), which is
// what robots.txt groups are matched against.
func ProductToken(ua string) string {
	ua = strings.TrimSpace(ua)
	if i := strings.IndexAny(ua, "/ "); i >= 0 {
		ua = ua[:i]
	}
	if ua == "" {
		return "*"
	}
	return ua
}
