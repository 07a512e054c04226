package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawlabs/breedai-go/internal/enrich"
	"github.com/pawlabs/breedai-go/internal/rag"
	"github.com/pawlabs/breedai-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must be long enough for a full retrieve-and-generate round trip.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// History, when non-nil, records every answered query for the
	// `breedai history` command and GET /api/history.
	History store.HistoryStore
	// MetricsRegistry receives all Prometheus metric registrations.
	// Defaults to prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// querier is the interface handleQuery and handleStats call into.
// *rag.Service satisfies it; tests inject a fake.
type querier interface {
	// Query answers a question grounded on retrieved documents.
	Query(ctx context.Context, question string, filters rag.Metadata, topK int) (*rag.Response, error)
	// Stats reports collection statistics.
	Stats(ctx context.Context) (*rag.Stats, error)
}

// enricher is the interface handleEnrich calls into.
// *enrich.Composer satisfies it; tests inject a fake.
type enricher interface {
	// EnrichSingle builds a breed profile for one named breed.
	EnrichSingle(ctx context.Context, breedName string) (*enrich.Info, error)
	// EnrichCrossbreed builds a combined profile from two or more parent breeds.
	EnrichCrossbreed(ctx context.Context, parentBreeds []string) (*enrich.Info, error)
}

// Server is the HTTP server that exposes the RAG service and the breed
// enrichment composer over a JSON API.
type Server struct {
	// querier answers /api/query and /api/stats requests.
	querier querier
	// enricher answers /api/enrich requests.
	enricher enricher
	// history records answered queries; nil disables history.
	history store.HistoryStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus metrics owned by this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// Filters restricts retrieval to chunks whose metadata matches every
	// key/value pair (e.g. {"species":"dog","breed":"poodle"}).
	Filters map[string]any `json:"filters,omitempty"`
	// TopK overrides the number of chunks retrieved. Zero means the
	// service default.
	TopK int `json:"topK,omitempty"`
}

// enrichRequest is the JSON body for POST /api/enrich.
// Exactly one of Breed or ParentBreeds must be set.
type enrichRequest struct {
	// Breed is the single breed to profile.
	Breed string `json:"breed,omitempty"`
	// ParentBreeds lists the parent breeds of a crossbreed (at least two).
	ParentBreeds []string `json:"parentBreeds,omitempty"`
}

// historyEntry is one element of the GET /api/history response.
type historyEntry struct {
	// Question is the recorded question verbatim.
	Question string `json:"question"`
	// Model identifies the generator backend that answered it.
	Model string `json:"model"`
	// Sources lists the source files the answer was grounded on.
	Sources []string `json:"sources,omitempty"`
	// DurationMS is the end-to-end query latency in milliseconds.
	DurationMS int64 `json:"durationMs"`
	// CreatedAt is when the query was answered, in RFC 3339 format.
	CreatedAt string `json:"createdAt"`
}

// errorResponse is the JSON body for all non-2xx API responses.
type errorResponse struct {
	// Error is a human-readable description of the failure.
	Error string `json:"error"`
}
