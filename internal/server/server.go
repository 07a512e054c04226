// Package server implements the HTTP server that exposes the breed knowledge
// base over a JSON API: grounded question answering, breed enrichment,
// collection statistics, query history, and health/readiness probes.
// The server is started by the `breedai serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pawlabs/breedai-go/internal/enrich"
	"github.com/pawlabs/breedai-go/internal/logging"
	"github.com/pawlabs/breedai-go/internal/rag"
	"github.com/pawlabs/breedai-go/internal/store"
)

// defaultHistoryLimit is the number of entries returned by GET /api/history
// when no limit parameter is given.
const defaultHistoryLimit = 20

// New constructs a Server from the provided query service, enricher, and config.
func New(q querier, e enricher, cfg *Config) (*Server, error) {
	if q == nil {
		return nil, fmt.Errorf("server: querier must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover embedding, retrieval, and generation.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	s := &Server{
		querier:  q,
		enricher: e,
		history:  cfg.History,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not configured — authentication disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	// Protected routes: auth then rate limit, innermost the handler itself.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", protected("query", s.handleQuery))
	mux.Handle("POST /api/enrich", protected("enrich", s.handleEnrich))
	mux.Handle("GET /api/stats", protected("stats", s.handleStats))
	mux.Handle("GET /api/history", protected("history", s.handleHistory))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleQuery handles POST /api/query. It answers the question grounded on
// retrieved documents and records the exchange in the history store.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.metrics.queryRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	resp, err := s.querier.Query(r.Context(), req.Question, rag.Metadata(req.Filters), req.TopK)
	elapsed := time.Since(start)
	if err != nil {
		s.writeQueryError(w, log, err)
		return
	}

	s.metrics.queryRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcomeOK).Observe(elapsed.Seconds())
	s.recordHistory(r.Context(), log, req.Question, resp, elapsed)

	writeJSON(w, http.StatusOK, resp)
}

// handleEnrich handles POST /api/enrich. The request must name either a
// single breed or at least two parent breeds, never both.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.enrichRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	single := req.Breed != ""
	cross := len(req.ParentBreeds) > 0
	if single == cross {
		s.metrics.enrichRequestsTotal.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "exactly one of breed or parentBreeds is required")
		return
	}
	if s.enricher == nil {
		s.metrics.enrichRequestsTotal.WithLabelValues(outcomeError).Inc()
		writeError(w, http.StatusServiceUnavailable, "enrichment is not configured")
		return
	}

	start := time.Now()
	var (
		info *enrich.Info
		err  error
	)
	if single {
		info, err = s.enricher.EnrichSingle(r.Context(), req.Breed)
	} else {
		info, err = s.enricher.EnrichCrossbreed(r.Context(), req.ParentBreeds)
	}
	elapsed := time.Since(start)
	if err != nil {
		outcome, status, msg := classifyError(err)
		s.metrics.enrichRequestsTotal.WithLabelValues(outcome).Inc()
		if outcome == outcomeError {
			log.Error("enrich failed", slog.Any("error", err))
		}
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "5")
		}
		writeError(w, status, msg)
		return
	}

	s.metrics.enrichRequestsTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.enrichDurationSeconds.Observe(elapsed.Seconds())
	writeJSON(w, http.StatusOK, info)
}

// handleStats handles GET /api/stats and reports collection statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	stats, err := s.querier.Stats(r.Context())
	if err != nil {
		log.Error("stats failed", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "collection statistics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleHistory handles GET /api/history. An optional ?limit= parameter
// bounds the number of entries returned (default 20, newest first).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.history == nil {
		writeJSON(w, http.StatusOK, []historyEntry{})
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		log.Error("history read failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			Question:   e.Question,
			Model:      e.Model,
			Sources:    e.Sources,
			DurationMS: e.Duration.Milliseconds(),
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeQueryError maps a query failure to metrics, status code, and body.
func (s *Server) writeQueryError(w http.ResponseWriter, log *slog.Logger, err error) {
	outcome, status, msg := classifyError(err)
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome == outcomeError {
		log.Error("query failed", slog.Any("error", err))
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeError(w, status, msg)
}

// classifyError maps service errors to a metric outcome label, HTTP status,
// and client-safe message. Validation errors are the caller's fault (400);
// unavailable backends are retryable (503); everything else is a 500.
func classifyError(err error) (outcome string, status int, msg string) {
	switch {
	case rag.IsValidation(err):
		return outcomeInvalid, http.StatusBadRequest, err.Error()
	case errors.Is(err, rag.ErrGenerationUnavailable):
		return outcomeUnavailable, http.StatusServiceUnavailable, "generation backend unavailable"
	case errors.Is(err, rag.ErrStoreUnavailable):
		return outcomeUnavailable, http.StatusServiceUnavailable, "vector store unavailable"
	default:
		return outcomeError, http.StatusInternalServerError, "internal error"
	}
}

// recordHistory appends the answered query to the history store. Failures
// are logged but never fail the request.
func (s *Server) recordHistory(ctx context.Context, log *slog.Logger, question string, resp *rag.Response, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	sources := make([]string, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		sources = append(sources, src.SourceFile)
	}
	err := s.history.Append(ctx, store.Entry{
		Question: question,
		Model:    resp.Model,
		Sources:  sources,
		Duration: elapsed,
	})
	if err != nil {
		log.Warn("history append failed", slog.Any("error", err))
	}
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parsePositiveInt parses s as a strictly positive decimal integer.
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive: %d", n)
	}
	return n, nil
}
