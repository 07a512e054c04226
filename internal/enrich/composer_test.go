package enrich

import (
	"context"
	"reflect"
	"testing"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// fakeQuerier serves canned sources keyed by breed filter and counts calls.
type fakeQuerier struct {
	// byBreed maps a breed key to the sources its chunks produce.
	byBreed map[string][]rag.Source

	queryCalls    int
	retrieveCalls int

	// synthesized records the source set passed to Synthesize.
	synthesized []rag.Source
}

func (f *fakeQuerier) sourcesFor(filters rag.Metadata) []rag.Source {
	breed, _ := filters["breed"].(string)
	return f.byBreed[breed]
}

func (f *fakeQuerier) Query(_ context.Context, question string, filters rag.Metadata, _ int) (*rag.Response, error) {
	f.queryCalls++
	return &rag.Response{
		Answer:  "answer to: " + question,
		Sources: f.sourcesFor(filters),
		Model:   "fake",
	}, nil
}

func (f *fakeQuerier) Retrieve(_ context.Context, _ string, filters rag.Metadata, _ int) ([]rag.Source, error) {
	f.retrieveCalls++
	return f.sourcesFor(filters), nil
}

func (f *fakeQuerier) Synthesize(_ context.Context, _ string, sources []rag.Source) (*rag.Response, error) {
	f.synthesized = sources
	return &rag.Response{Answer: "## Overview\ncombined\n## Care\nbrush often\n## Health\nwatch joints", Sources: sources, Model: "fake"}, nil
}

func TestNormalizeBreedKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Golden Retriever", "golden_retriever"},
		{"  labrador  ", "labrador"},
		{"Cavalier King-Charles Spaniel", "cavalier_king_charles_spaniel"},
		{"poodle", "poodle"},
		{"", ""},
		{"already_normalized", "already_normalized"},
	}
	for _, tt := range tests {
		if got := NormalizeBreedKey(tt.in); got != tt.want {
			t.Errorf("NormalizeBreedKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInfoValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		info    Info
		wantErr bool
	}{
		{"purebred", Info{Breed: "beagle"}, false},
		{"crossbreed", Info{ParentBreeds: []string{"poodle", "labrador"}}, false},
		{"neither", Info{}, true},
		{"both", Info{Breed: "beagle", ParentBreeds: []string{"poodle"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.info.Validate()
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnrichSingle_NoInfoIssuesOneQuery(t *testing.T) {
	t.Parallel()

	fq := &fakeQuerier{byBreed: map[string][]rag.Source{}}
	c, err := NewComposer(fq, 5)
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}

	info, err := c.EnrichSingle(context.Background(), "Unknown Breed")
	if err != nil {
		t.Fatalf("EnrichSingle: %v", err)
	}
	if fq.queryCalls != 1 {
		t.Errorf("expected exactly 1 query for an unknown breed, got %d", fq.queryCalls)
	}
	if info.Description != noInfoDescription {
		t.Errorf("Description = %q", info.Description)
	}
	if info.Breed != "Unknown Breed" || info.ParentBreeds != nil {
		t.Errorf("tagged union populated wrong: %+v", info)
	}
	if len(info.Sources) != 0 {
		t.Errorf("expected empty sources, got %v", info.Sources)
	}
	if err := info.Validate(); err != nil {
		t.Errorf("no-info result failed validation: %v", err)
	}
}

func TestEnrichSingle_CombinesBothQueries(t *testing.T) {
	t.Parallel()

	fq := &fakeQuerier{byBreed: map[string][]rag.Source{
		"golden_retriever": {
			{Content: "friendly dog", SourceFile: "docs/golden.md", RelevanceScore: 0.9},
			{Content: "hip dysplasia", SourceFile: "docs/golden_health.md", RelevanceScore: 0.8},
		},
	}}
	c, err := NewComposer(fq, 5)
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}

	info, err := c.EnrichSingle(context.Background(), "Golden Retriever")
	if err != nil {
		t.Fatalf("EnrichSingle: %v", err)
	}
	if fq.queryCalls != 2 {
		t.Errorf("expected 2 queries, got %d", fq.queryCalls)
	}
	if info.Description == "" || info.CareSummary == "" || info.HealthInfo == "" {
		t.Errorf("missing summary fields: %+v", info)
	}
	want := []string{"docs/golden.md", "docs/golden_health.md"}
	if !reflect.DeepEqual(info.Sources, want) {
		t.Errorf("Sources = %v, want %v", info.Sources, want)
	}
}

func TestEnrichCrossbreed_OrderIndependent(t *testing.T) {
	t.Parallel()

	byBreed := map[string][]rag.Source{
		"poodle": {
			{Content: "curly coat", SourceFile: "docs/poodle.md", RelevanceScore: 0.9},
		},
		"labrador": {
			{Content: "loves water", SourceFile: "docs/labrador.md", RelevanceScore: 0.7},
		},
	}

	run := func(parents []string) ([]rag.Source, *Info) {
		fq := &fakeQuerier{byBreed: byBreed}
		c, err := NewComposer(fq, 5)
		if err != nil {
			t.Fatalf("NewComposer: %v", err)
		}
		info, err := c.EnrichCrossbreed(context.Background(), parents)
		if err != nil {
			t.Fatalf("EnrichCrossbreed(%v): %v", parents, err)
		}
		return fq.synthesized, info
	}

	setAB, infoAB := run([]string{"Poodle", "Labrador"})
	setBA, infoBA := run([]string{"Labrador", "Poodle"})

	if !reflect.DeepEqual(setAB, setBA) {
		t.Errorf("pooled chunk set depends on parent order:\n %v\nvs\n %v", setAB, setBA)
	}
	if !reflect.DeepEqual(infoAB.Sources, infoBA.Sources) {
		t.Errorf("Sources depend on parent order: %v vs %v", infoAB.Sources, infoBA.Sources)
	}
	if infoAB.Breed != "" || len(infoAB.ParentBreeds) != 2 {
		t.Errorf("tagged union populated wrong: %+v", infoAB)
	}
	if err := infoAB.Validate(); err != nil {
		t.Errorf("crossbreed result failed validation: %v", err)
	}
}

func TestEnrichCrossbreed_SingleSynthesisCall(t *testing.T) {
	t.Parallel()

	fq := &fakeQuerier{byBreed: map[string][]rag.Source{
		"poodle":   {{Content: "a", SourceFile: "p.md", RelevanceScore: 0.5}},
		"labrador": {{Content: "b", SourceFile: "l.md", RelevanceScore: 0.5}},
	}}
	c, _ := NewComposer(fq, 5)

	info, err := c.EnrichCrossbreed(context.Background(), []string{"poodle", "labrador"})
	if err != nil {
		t.Fatalf("EnrichCrossbreed: %v", err)
	}
	if fq.retrieveCalls != 2 {
		t.Errorf("expected one retrieval per parent, got %d", fq.retrieveCalls)
	}
	if fq.queryCalls != 0 {
		t.Errorf("crossbreed must not use Query, got %d calls", fq.queryCalls)
	}
	if info.CareSummary != "brush often" || info.HealthInfo != "watch joints" {
		t.Errorf("section split failed: care=%q health=%q", info.CareSummary, info.HealthInfo)
	}
}

func TestEnrichCrossbreed_NoMatchingChunks(t *testing.T) {
	t.Parallel()

	fq := &fakeQuerier{byBreed: map[string][]rag.Source{}}
	c, _ := NewComposer(fq, 5)

	info, err := c.EnrichCrossbreed(context.Background(), []string{"unknown_a", "unknown_b"})
	if err != nil {
		t.Fatalf("EnrichCrossbreed: %v", err)
	}
	if info.Description != noInfoDescription {
		t.Errorf("Description = %q", info.Description)
	}
	if fq.synthesized != nil {
		t.Error("Synthesize must not run with an empty pool")
	}
}

func TestEnrichSingle_EmptyName(t *testing.T) {
	t.Parallel()

	fq := &fakeQuerier{}
	c, _ := NewComposer(fq, 5)
	_, err := c.EnrichSingle(context.Background(), "   ")
	if !rag.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fq.queryCalls != 0 {
		t.Errorf("no query should run for an invalid name, got %d", fq.queryCalls)
	}
}

func TestEnrichCrossbreed_RequiresTwoParents(t *testing.T) {
	t.Parallel()

	c, _ := NewComposer(&fakeQuerier{}, 5)
	_, err := c.EnrichCrossbreed(context.Background(), []string{"poodle"})
	if !rag.IsValidation(err) {
		t.Fatalf("expected validation error for single parent, got %v", err)
	}
}

func TestSplitCareHealth_NoHeadings(t *testing.T) {
	t.Parallel()

	care, health := splitCareHealth("A plain answer with no sections.")
	if care != "A plain answer with no sections." || health != care {
		t.Errorf("unheadinged answer should be used whole: care=%q health=%q", care, health)
	}
}
