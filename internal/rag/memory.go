package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a brute-force in-memory VectorStore using cosine distance.
// It backs unit tests and the `--store memory` development mode; production
// deployments use QdrantStore. Safe for concurrent use.
type MemoryStore struct {
	// mu guards records and embeddings.
	mu sync.RWMutex

	// dimension is the fixed embedding size, set at construction. Upserts
	// and searches with a different dimension are rejected, never reshaped.
	dimension int

	// collection is the logical collection name reported by Stats.
	collection string

	// records holds the stored chunks keyed by ID so re-ingestion of
	// identical content overwrites in place.
	records map[string]Record

	// embeddings holds the vector for each stored record, keyed by ID.
	embeddings map[string][]float32
}

// NewMemoryStore constructs an empty MemoryStore for vectors of the given
// dimension.
func NewMemoryStore(collection string, dimension int) (*MemoryStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("memory store: dimension must be positive, got %d", dimension)
	}
	return &MemoryStore{
		dimension:  dimension,
		collection: collection,
		records:    make(map[string]Record),
		embeddings: make(map[string][]float32),
	}, nil
}

// Upsert stores or overwrites records by ID.
func (s *MemoryStore) Upsert(_ context.Context, records []Record, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("memory store: %d records but %d embeddings", len(records), len(embeddings))
	}
	for i, vec := range embeddings {
		if len(vec) != s.dimension {
			return NewValidationError("embeddings",
				fmt.Sprintf("vector %d has dimension %d, store expects %d", i, len(vec), s.dimension))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range records {
		s.records[rec.ID] = rec
		s.embeddings[rec.ID] = embeddings[i]
	}
	return nil
}

// Search scans all stored vectors, applies the exact-match filter, and
// returns up to topK results ordered by ascending cosine distance.
func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, topK int, filters Metadata) ([]SearchResult, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, NewValidationError("query_embedding",
			fmt.Sprintf("dimension %d does not match store dimension %d", len(queryEmbedding), s.dimension))
	}
	if err := ValidateMetadata("filters", filters); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.records))
	for id, rec := range s.records {
		if !matchesFilters(rec, filters) {
			continue
		}
		results = append(results, SearchResult{
			Content:  rec.Content,
			Source:   rec.Source,
			Metadata: rec.Metadata,
			Distance: 1 - cosineSimilarity(queryEmbedding, s.embeddings[id]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.records)), nil
}

// Collection returns the logical collection name.
func (s *MemoryStore) Collection() string { return s.collection }

// Ping always succeeds — the store lives in-process.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// matchesFilters reports whether rec's metadata (or source) exactly matches
// every filter key. Numeric values compare by float64 value so an int filter
// matches an int64 stored facet.
func matchesFilters(rec Record, filters Metadata) bool {
	for k, want := range filters {
		var got any
		if k == "source" {
			got = rec.Source
		} else {
			v, ok := rec.Metadata[k]
			if !ok {
				return false
			}
			got = v
		}
		if !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

// scalarEqual compares two scalar metadata values, treating all numeric
// types as equivalent when their values match.
func scalarEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

// asFloat converts any supported numeric type to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Returns 0 for zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float32 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
