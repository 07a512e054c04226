package budget

import (
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},     // short non-empty strings round up to 1
		{"abcd", 1},    // 4 chars = 1 token
		{"abcdefgh", 2}, // 8 chars = 2 tokens
	}
	for _, tt := range tests {
		if got := Estimate(tt.in); got != tt.want {
			t.Errorf("Estimate(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTrim_AllFit(t *testing.T) {
	t.Parallel()

	items := []string{"short", "also short"}
	got := Trim(items, func(s string) string { return s }, 1000)
	if len(got) != 2 {
		t.Errorf("expected all items retained, got %d", len(got))
	}
}

func TestTrim_DropsTail(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 400) // ~100 tokens + 4 overhead
	items := []string{big, big, big}

	got := Trim(items, func(s string) string { return s }, 220)
	if len(got) != 2 {
		t.Errorf("expected 2 items within 220-token budget, got %d", len(got))
	}
	// The retained prefix must be the head of the input, not a reordering.
	for i := range got {
		if got[i] != items[i] {
			t.Errorf("item %d: trimmed slice is not a prefix of the input", i)
		}
	}
}

func TestTrim_EvenFirstItemTooLarge(t *testing.T) {
	t.Parallel()

	items := []string{strings.Repeat("x", 4000)}
	got := Trim(items, func(s string) string { return s }, 10)
	if len(got) != 0 {
		t.Errorf("expected empty result when nothing fits, got %d items", len(got))
	}
}

func TestTrim_Empty(t *testing.T) {
	t.Parallel()

	got := Trim(nil, func(s string) string { return s }, 100)
	if len(got) != 0 {
		t.Errorf("expected empty result for empty input, got %d", len(got))
	}
}
