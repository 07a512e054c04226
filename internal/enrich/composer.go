// Package enrich composes retrieval-grounded breed knowledge summaries on
// top of the query pipeline. A summary covers either a single breed or a
// crossbreed described by its parent breeds.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// noInfoDescription is returned when the knowledge base has nothing on the
// requested breed.
const noInfoDescription = "No information is available for this breed in the knowledge base."

// Info is a composed knowledge summary. Exactly one of Breed or
// ParentBreeds is populated: Breed for a purebred, ParentBreeds for a
// crossbreed. Validate enforces the exclusivity.
type Info struct {
	// Breed is the purebred name as supplied by the caller. Empty for
	// crossbreeds.
	Breed string `json:"breed,omitempty"`

	// ParentBreeds lists the crossbreed's parent breeds. Nil for purebreds.
	ParentBreeds []string `json:"parent_breeds,omitempty"`

	// Description is the general breed overview.
	Description string `json:"description"`

	// CareSummary covers grooming, exercise and feeding guidance.
	CareSummary string `json:"care_summary"`

	// HealthInfo covers known conditions and preventive care.
	HealthInfo string `json:"health_info"`

	// Sources is the deduplicated, sorted set of source files the summary
	// is grounded on. Empty when no information was found.
	Sources []string `json:"sources"`
}

// Validate checks the Breed/ParentBreeds exclusivity invariant.
func (i *Info) Validate() error {
	hasBreed := i.Breed != ""
	hasParents := len(i.ParentBreeds) > 0
	if hasBreed == hasParents {
		return rag.NewValidationError("info", "exactly one of breed or parent_breeds must be set")
	}
	return nil
}

// Querier is the slice of the query pipeline the composer needs. Satisfied
// by *rag.Service; tests substitute a counting double.
type Querier interface {
	Query(ctx context.Context, question string, filters rag.Metadata, topK int) (*rag.Response, error)
	Retrieve(ctx context.Context, question string, filters rag.Metadata, topK int) ([]rag.Source, error)
	Synthesize(ctx context.Context, question string, sources []rag.Source) (*rag.Response, error)
}

// Composer builds Info summaries from filtered retrieval passes.
type Composer struct {
	// svc is the underlying query pipeline.
	svc Querier

	// topK is the per-retrieval result count.
	topK int
}

// NewComposer constructs a Composer. topK <= 0 selects the pipeline default.
func NewComposer(svc Querier, topK int) (*Composer, error) {
	if svc == nil {
		return nil, fmt.Errorf("enrich: querier must not be nil")
	}
	return &Composer{svc: svc, topK: topK}, nil
}

// NormalizeBreedKey converts a display name to the storage key convention
// used at ingestion: lowercase with runs of spaces and hyphens collapsed to
// single underscores ("Golden Retriever" -> "golden_retriever").
func NormalizeBreedKey(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// EnrichSingle composes a summary for one purebred. It issues a description
// query first; if that finds nothing, the fixed no-information summary is
// returned without a second query. Otherwise a second query gathers care and
// health guidance and the two answers are combined.
func (c *Composer) EnrichSingle(ctx context.Context, breedName string) (*Info, error) {
	key := NormalizeBreedKey(breedName)
	if key == "" {
		return nil, rag.NewValidationError("breed", "must not be empty")
	}
	filters := rag.Metadata{"breed": key}

	descQ := fmt.Sprintf("Give a general description of the %s breed: temperament, appearance, and typical characteristics.", breedName)
	descResp, err := c.svc.Query(ctx, descQ, filters, c.topK)
	if err != nil {
		return nil, fmt.Errorf("enrich: description query for %q: %w", key, err)
	}
	if len(descResp.Sources) == 0 {
		return &Info{
			Breed:       breedName,
			Description: noInfoDescription,
			Sources:     []string{},
		}, nil
	}

	careQ := fmt.Sprintf("What care does the %s breed need, and what health issues is it prone to? Cover grooming, exercise, diet, and known conditions.", breedName)
	careResp, err := c.svc.Query(ctx, careQ, filters, c.topK)
	if err != nil {
		return nil, fmt.Errorf("enrich: care query for %q: %w", key, err)
	}

	care, health := splitCareHealth(careResp.Answer)
	return &Info{
		Breed:       breedName,
		Description: descResp.Answer,
		CareSummary: care,
		HealthInfo:  health,
		Sources:     unionSourceFiles(descResp.Sources, careResp.Sources),
	}, nil
}

// EnrichCrossbreed composes a summary for a crossbreed from its parent
// breeds. Each parent gets its own retrieval pass (a chunk carries exactly
// one breed tag, so a joint filter can never match); the pooled context is
// then synthesized in a single generation call. The pooled chunk set does
// not depend on the order of parentBreeds.
func (c *Composer) EnrichCrossbreed(ctx context.Context, parentBreeds []string) (*Info, error) {
	if len(parentBreeds) < 2 {
		return nil, rag.NewValidationError("parent_breeds", "crossbreed requires at least two parent breeds")
	}

	question := "What are the characteristics, care needs, and health concerns of this breed? Cover temperament, grooming, exercise, diet, and known conditions."

	var pooled []rag.Source
	for _, parent := range parentBreeds {
		key := NormalizeBreedKey(parent)
		if key == "" {
			return nil, rag.NewValidationError("parent_breeds", "parent breed name must not be empty")
		}
		sources, err := c.svc.Retrieve(ctx, question, rag.Metadata{"breed": key}, c.topK)
		if err != nil {
			return nil, fmt.Errorf("enrich: retrieval for parent %q: %w", key, err)
		}
		pooled = append(pooled, sources...)
	}
	pooled = dedupeSources(pooled)

	if len(pooled) == 0 {
		return &Info{
			ParentBreeds: parentBreeds,
			Description:  noInfoDescription,
			Sources:      []string{},
		}, nil
	}

	synthQ := fmt.Sprintf(
		"Describe a crossbreed whose parents are %s. Write three sections titled Overview, Care, and Health, combining what is known about the parent breeds.",
		strings.Join(parentBreeds, " and "))
	resp, err := c.svc.Synthesize(ctx, synthQ, pooled)
	if err != nil {
		return nil, fmt.Errorf("enrich: crossbreed synthesis: %w", err)
	}

	care, health := splitCareHealth(resp.Answer)
	return &Info{
		ParentBreeds: parentBreeds,
		Description:  resp.Answer,
		CareSummary:  care,
		HealthInfo:   health,
		Sources:      unionSourceFiles(pooled),
	}, nil
}

// dedupeSources removes duplicate chunks and imposes a deterministic order:
// descending relevance, then source file, then content. This keeps the
// synthesis prompt independent of parent retrieval order.
func dedupeSources(sources []rag.Source) []rag.Source {
	type chunkKey struct{ file, content string }
	seen := make(map[chunkKey]bool, len(sources))
	out := make([]rag.Source, 0, len(sources))
	for _, s := range sources {
		k := chunkKey{s.SourceFile, s.Content}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		if out[i].SourceFile != out[j].SourceFile {
			return out[i].SourceFile < out[j].SourceFile
		}
		return out[i].Content < out[j].Content
	})
	return out
}

// unionSourceFiles collects the distinct source files across source lists,
// sorted for stable output.
func unionSourceFiles(lists ...[]rag.Source) []string {
	set := make(map[string]bool)
	for _, list := range lists {
		for _, s := range list {
			if s.SourceFile != "" {
				set[s.SourceFile] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// splitCareHealth partitions a generated answer into care and health parts
// by scanning for heading-like lines mentioning care or health. Answers
// without recognizable headings are used whole for both fields rather than
// dropped.
func splitCareHealth(answer string) (care, health string) {
	lines := strings.Split(answer, "\n")

	section := ""
	var careLines, healthLines []string
	for _, line := range lines {
		switch {
		case isSectionHeading(line, "care"):
			section = "care"
			continue
		case isSectionHeading(line, "health"):
			section = "health"
			continue
		case isSectionHeading(line, "overview"):
			section = ""
			continue
		}
		switch section {
		case "care":
			careLines = append(careLines, line)
		case "health":
			healthLines = append(healthLines, line)
		}
	}

	care = strings.TrimSpace(strings.Join(careLines, "\n"))
	health = strings.TrimSpace(strings.Join(healthLines, "\n"))
	if care == "" && health == "" {
		trimmed := strings.TrimSpace(answer)
		return trimmed, trimmed
	}
	if care == "" {
		care = strings.TrimSpace(answer)
	}
	if health == "" {
		health = strings.TrimSpace(answer)
	}
	return care, health
}

// isSectionHeading reports whether line is a short heading containing topic,
// e.g. "## Care", "Care:", "**Health**".
func isSectionHeading(line, topic string) bool {
	trimmed := strings.ToLower(strings.Trim(strings.TrimSpace(line), "#*: "))
	if trimmed == "" || len(trimmed) > 40 {
		return false
	}
	return strings.HasPrefix(trimmed, topic)
}
