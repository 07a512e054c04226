package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/pawlabs/breedai-go/internal/document"
	"github.com/pawlabs/breedai-go/internal/embedder"
	"github.com/pawlabs/breedai-go/internal/provider"
	"github.com/pawlabs/breedai-go/internal/rag"
	"github.com/pawlabs/breedai-go/internal/server"
)

// defaultCollection is the Qdrant collection used when QDRANT_COLLECTION is unset.
const defaultCollection = "breed-docs"

// getEnvOrDefault returns the environment variable value or def if unset.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the environment variable parsed as an int, or def if
// unset or unparseable.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// embeddingBackend resolves the embedding backend name the same way
// embedder.NewFromEnv does: EMBEDDING_PROVIDER, then MODEL_PROVIDER,
// then "ollama".
func embeddingBackend() string {
	return getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))
}

// buildStore connects to Qdrant using the QDRANT_* environment variables and
// sizes the collection for the configured embedding backend.
func buildStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)
	vectorSize := uint64(embedder.DefaultDimensions(embeddingBackend())) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return store, nil
}

// pipelineDeps bundles the constructed query pipeline components so callers
// can attach readiness probes or reuse the store connection.
type pipelineDeps struct {
	// Service is the fully wired query pipeline.
	Service *rag.Service
	// Store is the Qdrant connection backing the service.
	Store *rag.QdrantStore
	// Embedder is the embedding backend backing the service.
	Embedder rag.Embedder
}

// buildService wires the full query pipeline from environment configuration:
// embedder, Qdrant store, and (when withGenerator is set) the LLM generator.
// The returned close function releases the store connection.
func buildService(ctx context.Context, log *slog.Logger, withGenerator bool) (*pipelineDeps, func(), error) {
	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, nil, err
	}

	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", embeddingBackend()))

	store, err := buildStore(ctx, log)
	if err != nil {
		return nil, nil, err
	}

	var gen rag.Generator
	if withGenerator {
		g, err := provider.NewGeneratorFromEnv(ctx)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
		}
		gen = g
		log.Info("generator initialised", slog.String("model", g.ModelName()))
	}

	svc, err := rag.NewService(emb, store, gen, &rag.Config{})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	deps := &pipelineDeps{Service: svc, Store: store, Embedder: emb}
	return deps, func() { store.Close() }, nil
}

// buildPingers assembles the readiness probes for the serve command: the
// Qdrant store and the embedding backend.
func buildPingers(deps *pipelineDeps) []server.Pinger {
	return []server.Pinger{
		server.NewStorePinger(deps.Store, "qdrant"),
		server.NewEmbedderPinger(deps.Embedder, embeddingBackend()),
	}
}

// buildProcessor constructs the chunking processor from the CHUNK_*
// environment variables, backed by a tiktoken tokenizer.
func buildProcessor() (*document.Processor, error) {
	encoding := getEnvOrDefault("CHUNK_ENCODING", document.DefaultEncoding)
	tok, err := document.NewTiktoken(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %q: %w", encoding, err)
	}
	maxTokens := getEnvInt("CHUNK_MAX_TOKENS", 500)
	overlap := getEnvInt("CHUNK_OVERLAP", 50)
	return document.NewProcessor(maxTokens, overlap, tok)
}
