package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// indexedPayloadFields are the metadata keys that get a keyword payload index
// at collection creation so filtered searches stay fast as the corpus grows.
var indexedPayloadFields = []string{"species", "breed", "doc_type"}

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection. Upserts with a different dimension are rejected.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
// The collection uses cosine distance; Qdrant reports cosine *similarity*
// as the point score, so Search converts it to distance = 1 - score to keep
// the VectorStore contract metric-consistent with MemoryStore.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// and its payload indexes exist, and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name must not be empty")
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be set before the collection is created")
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection and its payload indexes if
// they do not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	for _, field := range indexedPayloadFields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.cfg.Collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("qdrant: failed to index payload field %q: %w", field, err)
		}
	}

	return nil
}

// Upsert stores or overwrites a batch of records with their embeddings.
// Record IDs must be UUIDs; identical content re-ingested under the same
// source yields the same ID, so duplicates collapse into one point.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record, embeddings [][]float32) error {
	if len(records) != len(embeddings) {
		return fmt.Errorf("qdrant: %d records but %d embeddings", len(records), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, rec := range records {
		if uint64(len(embeddings[i])) != s.cfg.VectorSize {
			return NewValidationError("embeddings",
				fmt.Sprintf("vector %d has dimension %d, collection expects %d", i, len(embeddings[i]), s.cfg.VectorSize))
		}

		payload := map[string]any{
			"content": rec.Content,
			"source":  rec.Source,
		}
		for k, v := range rec.Metadata {
			payload[k] = v
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search performs a filtered cosine similarity search. Results are ordered by
// ascending distance; an empty collection or unmatched filter returns an
// empty slice.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int, filters Metadata) ([]SearchResult, error) {
	if uint64(len(queryEmbedding)) != s.cfg.VectorSize {
		return nil, NewValidationError("query_embedding",
			fmt.Sprintf("dimension %d does not match collection dimension %d", len(queryEmbedding), s.cfg.VectorSize))
	}

	filter, err := buildQdrantFilter(filters)
	if err != nil {
		return nil, err
	}

	limit := uint64(topK) //nolint:gosec // topK is validated by the service layer
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		res := SearchResult{
			// Qdrant reports cosine similarity; convert to distance so the
			// caller-facing ordering contract (ascending distance) holds.
			Distance: 1 - r.Score,
			Metadata: make(Metadata),
		}
		for k, v := range r.Payload {
			switch k {
			case "content":
				res.Content = v.GetStringValue()
			case "source":
				res.Source = v.GetStringValue()
			default:
				res.Metadata[k] = payloadValue(v)
			}
		}
		out = append(out, res)
	}

	return out, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return n, nil
}

// Collection returns the configured collection name.
func (s *QdrantStore) Collection() string { return s.cfg.Collection }

// Ping calls the Qdrant HealthCheck RPC. Used by the server's readiness probe.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// buildQdrantFilter converts an exact-match Metadata filter into a Qdrant
// must-filter. Unsupported value types are rejected, never coerced.
func buildQdrantFilter(filters Metadata) (*qdrant.Filter, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	if err := ValidateMetadata("filters", filters); err != nil {
		return nil, err
	}

	conditions := make([]*qdrant.Condition, 0, len(filters))
	for k, v := range filters {
		switch val := v.(type) {
		case string:
			conditions = append(conditions, qdrant.NewMatch(k, val))
		case bool:
			conditions = append(conditions, qdrant.NewMatchBool(k, val))
		case int:
			conditions = append(conditions, qdrant.NewMatchInt(k, int64(val)))
		case int32:
			conditions = append(conditions, qdrant.NewMatchInt(k, int64(val)))
		case int64:
			conditions = append(conditions, qdrant.NewMatchInt(k, val))
		case uint, uint32, uint64:
			conditions = append(conditions, qdrant.NewMatchInt(k, toInt64(val)))
		case float32:
			conditions = append(conditions, floatCondition(k, float64(val)))
		case float64:
			conditions = append(conditions, floatCondition(k, val))
		}
	}

	return &qdrant.Filter{Must: conditions}, nil
}

// floatCondition matches a float payload value exactly. Qdrant has no
// exact-match condition for doubles over gRPC, so a degenerate closed range
// [v, v] stands in for equality. Truncating to an integer match would
// silently change which records qualify.
func floatCondition(key string, v float64) *qdrant.Condition {
	return qdrant.NewRange(key, &qdrant.Range{Gte: &v, Lte: &v})
}

// toInt64 narrows the unsigned types accepted by ValidateMetadata.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case uint:
		return int64(n) //nolint:gosec // filter values are small facet numbers
	case uint32:
		return int64(n)
	case uint64:
		return int64(n) //nolint:gosec // filter values are small facet numbers
	default:
		return 0
	}
}

// payloadValue converts a Qdrant payload value back to its Go scalar.
func payloadValue(v *qdrant.Value) any {
	switch v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return v.GetStringValue()
	case *qdrant.Value_IntegerValue:
		return v.GetIntegerValue()
	case *qdrant.Value_DoubleValue:
		return v.GetDoubleValue()
	case *qdrant.Value_BoolValue:
		return v.GetBoolValue()
	default:
		return v.GetStringValue()
	}
}
