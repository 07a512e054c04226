package store

import (
	"context"
	"testing"
	"time"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Append(ctx, Entry{
		Question: "What health issues affect golden retrievers?",
		Model:    "llama3",
		Sources:  []string{"dogs/golden_retriever/health.md", "dogs/golden_retriever/care.md"},
		Duration: 1200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Question != "What health issues affect golden retrievers?" || e.Model != "llama3" {
		t.Errorf("entry round-trip wrong: %+v", e)
	}
	if len(e.Sources) != 2 || e.Sources[0] != "dogs/golden_retriever/health.md" {
		t.Errorf("sources round-trip wrong: %v", e.Sources)
	}
	if e.Duration != 1200*time.Millisecond {
		t.Errorf("duration round-trip wrong: %v", e.Duration)
	}
	if e.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func Test_Store_RecentNewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	questions := []string{"first", "second", "third"}
	for i, q := range questions {
		err := s.Append(ctx, Entry{
			Question:  q,
			Model:     "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []string{"third", "second", "first"}
	for i, w := range want {
		if entries[i].Question != w {
			t.Errorf("entry[%d]: want %q, got %q", i, w, entries[i].Question)
		}
	}
}

func Test_Store_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for range 6 {
		if err := s.Append(ctx, Entry{Question: "q", Model: "m"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("want 4 entries, got %d", len(entries))
	}
}

func Test_Store_EmptyHistoryReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	entries, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want 0 entries, got %d", len(entries))
	}
}

func Test_Store_NoSourcesRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, Entry{Question: "anything?", Model: "m"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries[0].Sources) != 0 {
		t.Errorf("want no sources, got %v", entries[0].Sources)
	}
}
