package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogger_fetch_requests_total",
			Help: "Total number of page fetches by outcome",
		},
		[]string{"domain", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogger_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogger_fetch_bytes_total",
			Help: "Total bytes downloaded across all fetches",
		},
		[]string{"domain"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogger_search_requests_total",
			Help: "Total number of search queries by outcome",
		},
		[]string{"outcome"},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blogger_search_results",
			Help:    "Number of URLs returned per search query",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 50},
		},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogger_extractions_total",
			Help: "Total number of per-page extractions by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogger_llm_tokens_total",
			Help: "Total tokens consumed by language model calls",
		},
		[]string{"op", "model", "kind"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogger_llm_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"op"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogger_runs_total",
			Help: "Total number of pipeline runs by mode and terminal status",
		},
		[]string{"mode", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogger_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)
)

// RecordFetch counts one fetch attempt against domain.
func RecordFetch(domain, outcome string) {
	FetchRequestsTotal.WithLabelValues(domain, outcome).Inc()
}

// ObserveFetch records the latency and size of a completed HTTP exchange.
func ObserveFetch(domain string, d time.Duration, bytes int) {
	FetchDuration.WithLabelValues(domain).Observe(d.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(bytes))
}

// RecordSearch counts one search query and, on success, its result size.
func RecordSearch(outcome string, results int) {
	SearchRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		SearchResults.Observe(float64(results))
	}
}

// RecordExtraction counts one per-page extraction.
func RecordExtraction(mode, outcome string) {
	ExtractionsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordLLMCall records the latency and token usage of one completion.
func RecordLLMCall(op, model string, promptTokens, completionTokens int, d time.Duration) {
	LLMDuration.WithLabelValues(op).Observe(d.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(op, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(op, model, "completion").Add(float64(completionTokens))
	}
}

// RecordRun counts one finished pipeline run.
func RecordRun(mode, status string) {
	RunsTotal.WithLabelValues(mode, status).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start listens on addr (e.g. ":9090", "127.0.0.1:0") and exposes /metrics.
func Start(addr string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	logger.Info("metrics server listening", "addr", ln.Addr().String())
	return &Server{srv: srv, ln: ln}, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
