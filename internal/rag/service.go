package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pawlabs/breedai-go/internal/budget"
	"github.com/pawlabs/breedai-go/internal/logging"
)

// noContextFallback is the context string used when retrieval finds nothing.
// The pipeline still runs the generator with this marker so the caller gets
// an explicit "insufficient information" answer instead of an error.
const noContextFallback = "No relevant documents were found in the knowledge base for this question."

// answerPromptTemplate is the generation prompt for grounded answers.
// The context block, the question, and the grounding rules are all explicit
// so the generator cannot silently fall back to its own priors.
const answerPromptTemplate = `You are a veterinary knowledge assistant for pet owners.
Answer the question using ONLY the numbered context excerpts below.

Rules:
- If the context does not contain the answer, say that the available
  information is insufficient — do not guess or invent facts.
- Cite the excerpts you used by bracket number, e.g. [1] or [2].
- Keep the answer factual and concise.

Context:
%s

Question: %s

Answer:`

// Config holds the tunables for a Service.
type Config struct {
	// DefaultTopK is the number of results returned when the caller passes
	// topK <= 0. Defaults to 5.
	DefaultTopK int

	// MaxContextTokens is the estimated token budget for the assembled
	// context block. Lowest-relevance sources are dropped to fit.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// Service orchestrates the query pipeline: embed the question, search the
// vector store, assemble a bounded context, and call the generator.
// All dependencies are injected at construction; Service itself is stateless
// and safe for concurrent use.
type Service struct {
	// embedder converts the question into a dense vector.
	embedder Embedder

	// store performs the filtered nearest-neighbour search.
	store VectorStore

	// generator produces the grounded answer.
	generator Generator

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int

	// maxContextTokens bounds the assembled context size.
	maxContextTokens int
}

// NewService constructs a Service. Embedder and store must be non-nil;
// the generator may be nil only for retrieval-only callers, in which case
// Query and Synthesize return an error.
func NewService(embedder Embedder, store VectorStore, generator Generator, cfg *Config) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = 5
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Service{
		embedder:         embedder,
		store:            store,
		generator:        generator,
		defaultTopK:      topK,
		maxContextTokens: maxCtx,
	}, nil
}

// Query answers a question grounded in the indexed corpus.
// The steps are strictly sequential: embed, search, assemble, generate.
// Zero retrieved sources is not an error — the generator still runs against
// the fallback context and produces an explicit insufficiency answer.
func (s *Service) Query(ctx context.Context, question string, filters Metadata, topK int) (*Response, error) {
	sources, err := s.Retrieve(ctx, question, filters, topK)
	if err != nil {
		return nil, err
	}
	return s.Synthesize(ctx, question, sources)
}

// Retrieve embeds the question and returns the matching sources ordered by
// descending relevance. Validation failures (blank question, bad filter
// types) are rejected before any I/O.
func (s *Service) Retrieve(ctx context.Context, question string, filters Metadata, topK int) ([]Source, error) {
	if strings.TrimSpace(question) == "" {
		return nil, NewValidationError("question", "must not be empty or whitespace-only")
	}
	if err := ValidateMetadata("filters", filters); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	embeddings, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding question failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for question")
	}

	results, err := s.store.Search(ctx, embeddings[0], topK, filters)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{
			Content:        r.Content,
			SourceFile:     r.Source,
			RelevanceScore: clamp01(1 - r.Distance),
		})
	}
	return sources, nil
}

// Synthesize assembles the context block from the given sources and calls
// the generator once. Sources beyond the context token budget are dropped
// lowest-relevance first (the slice is already ordered by relevance).
func (s *Service) Synthesize(ctx context.Context, question string, sources []Source) (*Response, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("rag: no generator configured")
	}

	kept := budget.Trim(sources, func(src Source) string { return src.Content }, s.maxContextTokens)
	if dropped := len(sources) - len(kept); dropped > 0 {
		logging.FromContext(ctx).Warn("rag: dropped sources to fit context budget",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(kept)),
			slog.Int("max_tokens", s.maxContextTokens),
		)
	}

	prompt := fmt.Sprintf(answerPromptTemplate, buildContext(kept), question)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		// Typed unavailability errors pass through unmodified so callers can
		// apply their own retry policy.
		return nil, err
	}

	return &Response{
		Answer:  answer,
		Sources: sources,
		Model:   s.generator.ModelName(),
	}, nil
}

// Stats reports the collection name and record count of the backing store.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: stats failed: %w", err)
	}
	return &Stats{Collection: s.store.Collection(), Records: n}, nil
}

// buildContext formats sources as numbered excerpts separated by blank
// lines. With no sources it returns the fixed fallback marker — never an
// empty string, so the generator always sees an explicit grounding state.
func buildContext(sources []Source) string {
	if len(sources) == 0 {
		return noContextFallback
	}

	var sb strings.Builder
	for i, src := range sources {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, src.Content)
	}
	return sb.String()
}

// clamp01 clamps v into [0, 1]. Raw distances can exceed 1 (cosine distance
// ranges up to 2 for opposed vectors), which must not leak negative scores.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
