// Package rag implements the retrieval-augmented generation core: vector
// storage, embedding, grounded answer synthesis, and the typed error
// conditions the rest of the system branches on. Concrete backends (Qdrant,
// in-memory, Ollama, OpenAI) satisfy the interfaces defined here so the
// service and CLI layers never depend on a specific vendor.
package rag

import (
	"context"
)

// Metadata is a flat map of filterable facets attached to a stored chunk or
// supplied as a query filter. Values are restricted to scalars (string,
// number, bool) — see ValidateMetadata.
type Metadata map[string]any

// Record is the persisted unit in a VectorStore: one embedded chunk of a
// source document plus its filterable metadata.
type Record struct {
	// ID is the stable identifier for this chunk, derived deterministically
	// from the source and content so re-ingestion overwrites rather than
	// duplicating.
	ID string

	// Content is the raw text of the chunk.
	Content string

	// Source is the origin file of the chunk (e.g. "golden_retriever/health.md").
	Source string

	// Metadata holds the filterable facets (species, breed, doc_type, ...).
	// It always includes the chunk_index and source_file keys.
	Metadata Metadata
}

// SearchResult is one nearest-neighbour hit returned by VectorStore.Search.
type SearchResult struct {
	// Content is the raw text of the matched chunk.
	Content string

	// Source is the origin file of the matched chunk.
	Source string

	// Metadata holds the stored facets of the matched chunk.
	Metadata Metadata

	// Distance is the cosine distance (1 - cosine similarity) between the
	// query embedding and the chunk embedding. Smaller is more similar.
	Distance float32
}

// Source is a retrieval result surfaced to callers, derived from a
// SearchResult with the distance mapped into a normalised relevance score.
type Source struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// SourceFile is the origin file of the chunk.
	SourceFile string `json:"source_file"`

	// RelevanceScore is clamp01(1 - distance) — 1 means identical, 0 means
	// unrelated. The mapping assumes cosine distance; see the store docs.
	RelevanceScore float32 `json:"relevance_score"`
}

// Response is the grounded answer produced by Service.Query.
type Response struct {
	// Answer is the generated text, constrained to the retrieved context.
	Answer string `json:"answer"`

	// Sources lists the retrieved chunks in descending relevance order.
	Sources []Source `json:"sources"`

	// Model identifies the generator backend that produced the answer.
	Model string `json:"model"`
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines; concurrent
// reads during a write rely on whatever consistency the backing index provides.
type VectorStore interface {
	// Upsert stores or overwrites a batch of records with their pre-computed
	// embeddings. embeddings[i] is the vector for records[i]; the two slices
	// must be the same length and every vector must match the store dimension.
	Upsert(ctx context.Context, records []Record, embeddings [][]float32) error

	// Search returns up to topK records nearest to queryEmbedding, ordered by
	// ascending distance. When filters is non-empty only records whose
	// metadata exactly matches every filter key are considered. An empty
	// collection or an unmatched filter yields an empty slice, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int, filters Metadata) ([]SearchResult, error)

	// Count returns the number of records currently stored.
	Count(ctx context.Context) (uint64, error)

	// Collection returns the logical collection name for stats reporting.
	Collection() string

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines and must
// return a *ValidationError for an empty batch or blank input text.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is the narrow contract this core consumes from an LLM backend.
// Implementations must be safe to call from multiple goroutines and must
// wrap connectivity and timeout failures in ErrGenerationUnavailable.
type Generator interface {
	// Generate produces a completion for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName identifies the underlying model for response attribution.
	ModelName() string
}

// Stats describes the current state of a collection, as returned by
// Service.Stats and surfaced via GET /api/stats and `breedai stats`.
type Stats struct {
	// Collection is the logical collection name.
	Collection string `json:"collection"`

	// Records is the number of stored chunks.
	Records uint64 `json:"records"`
}
