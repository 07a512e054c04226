package document

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// wordTokenizer treats each whitespace-separated word as one token.
// It keeps tests hermetic: the real tiktoken encoding downloads its
// vocabulary on first use.
type wordTokenizer struct {
	words []string
	index map[string]int
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{index: make(map[string]int)}
}

func (w *wordTokenizer) Encode(text string) []int {
	var tokens []int
	for _, word := range strings.Fields(text) {
		id, ok := w.index[word]
		if !ok {
			id = len(w.words)
			w.words = append(w.words, word)
			w.index[word] = id
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (w *wordTokenizer) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, id := range tokens {
		parts[i] = w.words[id]
	}
	return strings.Join(parts, " ")
}

func mustProcessor(t *testing.T, maxTokens, overlap int) *Processor {
	t.Helper()
	p, err := NewProcessor(maxTokens, overlap, newWordTokenizer())
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p
}

func TestNewProcessor_RejectsOverlap(t *testing.T) {
	t.Parallel()

	_, err := NewProcessor(100, 100, newWordTokenizer())
	if !rag.IsValidation(err) {
		t.Fatalf("expected validation error for overlap == maxTokens, got %v", err)
	}
	_, err = NewProcessor(100, 150, newWordTokenizer())
	if !rag.IsValidation(err) {
		t.Fatalf("expected validation error for overlap > maxTokens, got %v", err)
	}
}

func TestParseFrontmatter(t *testing.T) {
	t.Parallel()

	t.Run("absent", func(t *testing.T) {
		t.Parallel()
		content := "# Heading\n\nBody text."
		meta, body := ParseFrontmatter(content)
		if len(meta) != 0 {
			t.Errorf("expected empty metadata, got %v", meta)
		}
		if body != content {
			t.Errorf("body changed: %q", body)
		}
	})

	t.Run("well-formed", func(t *testing.T) {
		t.Parallel()
		content := "---\nbreed: golden_retriever\nspecies: dog\n---\n# Health\n\nHip dysplasia is common."
		meta, body := ParseFrontmatter(content)
		if meta["breed"] != "golden_retriever" {
			t.Errorf("breed = %v", meta["breed"])
		}
		if meta["species"] != "dog" {
			t.Errorf("species = %v", meta["species"])
		}
		if body != "# Health\n\nHip dysplasia is common." {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("malformed header fails soft", func(t *testing.T) {
		t.Parallel()
		content := "---\n: [not yaml\n---\nBody."
		meta, body := ParseFrontmatter(content)
		if len(meta) != 0 {
			t.Errorf("expected empty metadata for malformed header, got %v", meta)
		}
		if body != content {
			t.Errorf("expected content unchanged, got %q", body)
		}
	})

	t.Run("unterminated header is body text", func(t *testing.T) {
		t.Parallel()
		content := "---\nbreed: beagle\nno closing delimiter"
		meta, body := ParseFrontmatter(content)
		if len(meta) != 0 || body != content {
			t.Errorf("expected content unchanged, got meta=%v body=%q", meta, body)
		}
	})

	t.Run("horizontal rule is not a closing delimiter", func(t *testing.T) {
		t.Parallel()
		content := "---\nbreed: beagle\n----\nnot a fence"
		meta, body := ParseFrontmatter(content)
		if len(meta) != 0 || body != content {
			t.Errorf("expected content unchanged, got meta=%v body=%q", meta, body)
		}
	})

	t.Run("rule in body survives", func(t *testing.T) {
		t.Parallel()
		content := "---\nbreed: beagle\n---\nIntro.\n\n----\n\nAfter the rule."
		meta, body := ParseFrontmatter(content)
		if meta["breed"] != "beagle" {
			t.Errorf("breed = %v", meta["breed"])
		}
		if body != "Intro.\n\n----\n\nAfter the rule." {
			t.Errorf("body = %q", body)
		}
	})
}

func TestSplitByHeaders(t *testing.T) {
	t.Parallel()

	body := "Preamble before any heading.\n\n# Overview\nIntro text.\n\n## Care\nBrush daily.\n\n### Diet\nTwo meals.\n\n#### Not a split point\nstays in diet section."
	sections := SplitByHeaders(body)

	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d: %q", len(sections), sections)
	}
	if sections[0] != "Preamble before any heading." {
		t.Errorf("leading section = %q", sections[0])
	}
	if !strings.HasPrefix(sections[1], "# Overview") {
		t.Errorf("section 1 = %q", sections[1])
	}
	if !strings.HasPrefix(sections[2], "## Care") {
		t.Errorf("section 2 = %q", sections[2])
	}
	if !strings.HasPrefix(sections[3], "### Diet") {
		t.Errorf("section 3 = %q", sections[3])
	}
	if !strings.Contains(sections[3], "#### Not a split point") {
		t.Errorf("h4 should not start a new section: %q", sections[3])
	}
}

func TestChunkText_ShortTextIsIdentity(t *testing.T) {
	t.Parallel()

	p := mustProcessor(t, 500, 50)
	text := "A short section that fits in one chunk."
	chunks := p.ChunkText(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("expected identity chunking, got %q", chunks)
	}
}

func TestChunkText_SlidingWindow(t *testing.T) {
	t.Parallel()

	// 1200 distinct word-tokens, max 500, overlap 50: windows must be
	// [0,500), [450,950), [900,1200).
	words := make([]string, 1200)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " ")

	p := mustProcessor(t, 500, 50)
	chunks := p.ChunkText(text)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	bounds := []struct{ first, last string }{
		{"w0", "w499"},
		{"w450", "w949"},
		{"w900", "w1199"},
	}
	for i, b := range bounds {
		got := strings.Fields(chunks[i])
		if got[0] != b.first || got[len(got)-1] != b.last {
			t.Errorf("chunk %d spans [%s, %s], want [%s, %s]",
				i, got[0], got[len(got)-1], b.first, b.last)
		}
	}
}

func TestProcess_CallerMetadataWins(t *testing.T) {
	t.Parallel()

	p := mustProcessor(t, 500, 50)
	content := "---\na: 2\nbreed: poodle\n---\nSome body text."

	for range 3 {
		chunks, err := p.Process(content, rag.Metadata{"a": 1, "source": "doc.md"})
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		if got := chunks[0].Metadata["a"]; got != 1 {
			t.Errorf("caller-supplied key lost: a = %v, want 1", got)
		}
		if got := chunks[0].Metadata["breed"]; got != "poodle" {
			t.Errorf("frontmatter key lost: breed = %v", got)
		}
	}
}

func TestProcess_ChunksDoNotShareMetadata(t *testing.T) {
	t.Parallel()

	p := mustProcessor(t, 5, 1)
	content := "---\nbreed: poodle\n---\n" + strings.Repeat("alpha ", 12)

	chunks, err := p.Process(content, rag.Metadata{"source": "doc.md"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	chunks[0].Metadata["section"] = "added later"
	for _, c := range chunks[1:] {
		if _, ok := c.Metadata["section"]; ok {
			t.Fatalf("chunk %d metadata aliases chunk 0's map", c.Index)
		}
	}
}

func TestProcess_MonotonicIndexAcrossSections(t *testing.T) {
	t.Parallel()

	p := mustProcessor(t, 5, 1)
	content := "# One\n" + strings.Repeat("alpha ", 12) + "\n# Two\n" + strings.Repeat("beta ", 12)

	chunks, err := p.Process(content, rag.Metadata{"source": "doc.md"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(chunks) < 4 {
		t.Fatalf("expected multiple chunks across sections, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d; index must increase across sections", i, c.Index)
		}
	}
}

func TestProcess_EmptyContent(t *testing.T) {
	t.Parallel()

	p := mustProcessor(t, 500, 50)
	for _, content := range []string{"", "   \n\t  "} {
		_, err := p.Process(content, nil)
		if !rag.IsValidation(err) {
			t.Errorf("Process(%q): expected validation error, got %v", content, err)
		}
	}
}

func TestProcess_RejectsNonScalarMetadata(t *testing.T) {
	t.Parallel()

	p := mustProcessor(t, 500, 50)
	_, err := p.Process("Body.", rag.Metadata{"tags": []string{"a", "b"}})
	if !rag.IsValidation(err) {
		t.Errorf("expected validation error for slice metadata value, got %v", err)
	}
}
