package rag

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestBuildQdrantFilter_Empty(t *testing.T) {
	t.Parallel()

	for _, filters := range []Metadata{nil, {}} {
		filter, err := buildQdrantFilter(filters)
		if err != nil {
			t.Fatalf("buildQdrantFilter(%v): %v", filters, err)
		}
		if filter != nil {
			t.Errorf("buildQdrantFilter(%v) = %v, want nil", filters, filter)
		}
	}
}

func TestBuildQdrantFilter_ScalarMatches(t *testing.T) {
	t.Parallel()

	// One key per case: map iteration order would otherwise make the
	// condition slice unstable.
	tests := []struct {
		name    string
		filters Metadata
		check   func(t *testing.T, c *qdrant.Condition)
	}{
		{
			name:    "string becomes keyword match",
			filters: Metadata{"breed": "poodle"},
			check: func(t *testing.T, c *qdrant.Condition) {
				if got := c.GetField().GetMatch().GetKeyword(); got != "poodle" {
					t.Errorf("keyword = %q, want %q", got, "poodle")
				}
			},
		},
		{
			name:    "bool becomes boolean match",
			filters: Metadata{"neutered": true},
			check: func(t *testing.T, c *qdrant.Condition) {
				if got := c.GetField().GetMatch().GetBoolean(); !got {
					t.Error("boolean = false, want true")
				}
			},
		},
		{
			name:    "int becomes integer match",
			filters: Metadata{"chunk_index": 3},
			check: func(t *testing.T, c *qdrant.Condition) {
				if got := c.GetField().GetMatch().GetInteger(); got != 3 {
					t.Errorf("integer = %d, want 3", got)
				}
			},
		},
		{
			name:    "uint64 becomes integer match",
			filters: Metadata{"litter_size": uint64(7)},
			check: func(t *testing.T, c *qdrant.Condition) {
				if got := c.GetField().GetMatch().GetInteger(); got != 7 {
					t.Errorf("integer = %d, want 7", got)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			filter, err := buildQdrantFilter(tc.filters)
			if err != nil {
				t.Fatalf("buildQdrantFilter: %v", err)
			}
			if len(filter.GetMust()) != 1 {
				t.Fatalf("expected 1 must condition, got %d", len(filter.GetMust()))
			}
			tc.check(t, filter.GetMust()[0])
		})
	}
}

// Float filter values must keep their fractional part. Qdrant has no
// exact-match condition for doubles, so they travel as a closed range
// [v, v] rather than being truncated to an integer match.
func TestBuildQdrantFilter_FloatBecomesClosedRange(t *testing.T) {
	t.Parallel()

	filter, err := buildQdrantFilter(Metadata{"weight_kg": 2.5})
	if err != nil {
		t.Fatalf("buildQdrantFilter: %v", err)
	}
	if len(filter.GetMust()) != 1 {
		t.Fatalf("expected 1 must condition, got %d", len(filter.GetMust()))
	}

	field := filter.GetMust()[0].GetField()
	if field.GetKey() != "weight_kg" {
		t.Errorf("key = %q, want %q", field.GetKey(), "weight_kg")
	}
	if field.GetMatch() != nil {
		t.Errorf("float filter produced a match condition: %v", field.GetMatch())
	}
	r := field.GetRange()
	if r == nil {
		t.Fatal("float filter produced no range condition")
	}
	if r.GetGte() != 2.5 || r.GetLte() != 2.5 {
		t.Errorf("range = [%v, %v], want [2.5, 2.5]", r.GetGte(), r.GetLte())
	}
}

func TestBuildQdrantFilter_RejectsNonScalar(t *testing.T) {
	t.Parallel()

	_, err := buildQdrantFilter(Metadata{"tags": []string{"a", "b"}})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for slice filter value, got %v", err)
	}
}
