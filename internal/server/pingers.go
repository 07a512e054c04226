package server

import (
	"context"
	"fmt"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// StorePinger probes the vector store backing the RAG service. It satisfies
// the Pinger interface and is used by GET /api/ready.
type StorePinger struct {
	// store is the vector store to probe.
	store interface {
		Ping(ctx context.Context) error
	}
	// name identifies the store in readiness responses (e.g. "qdrant").
	name string
}

// NewStorePinger constructs a StorePinger for the given store and label.
// *rag.QdrantStore satisfies the required Ping method.
func NewStorePinger(store interface{ Ping(ctx context.Context) error }, name string) *StorePinger {
	return &StorePinger{store: store, name: name}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return p.name }

// Ping delegates to the store's own health check.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes an embedding backend by embedding a single short
// probe text. This costs one embedding call per readiness check, which is
// cheap compared to a generate call.
type EmbedderPinger struct {
	// embedder is the embedding backend to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given backend and label.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a one-word probe and reports any backend failure.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed returned no vector")
	}
	return nil
}

// PingerFunc adapts a plain function to the Pinger interface.
type PingerFunc struct {
	// Label is returned by Name().
	Label string
	// Fn is invoked by Ping().
	Fn func(ctx context.Context) error
}

// Name returns the dependency label used in readiness responses.
func (p PingerFunc) Name() string { return p.Label }

// Ping invokes the wrapped function.
func (p PingerFunc) Ping(ctx context.Context) error { return p.Fn(ctx) }
