// Package document parses and chunks raw markdown documents into the units
// that get embedded and indexed. Parsing is deterministic: the same input
// always yields the same chunk sequence, which keeps re-ingestion idempotent.
package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// Chunk is one bounded span of a document's text, ready for embedding.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// Metadata is the merged frontmatter + caller metadata. Each chunk owns
	// its own map, so callers may annotate one chunk without touching its
	// siblings.
	Metadata rag.Metadata

	// Index is the chunk's position within its document, starting at 0 and
	// monotonically increasing across all sections.
	Index int
}

// Tokenizer converts text to token IDs and back. The production
// implementation is tiktoken ([NewTiktoken]); tests inject a cheap fake so
// they run without network access.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Processor splits documents into token-bounded chunks.
type Processor struct {
	// maxTokens is the chunk window size in tokens.
	maxTokens int

	// overlap is how many tokens consecutive chunks share.
	overlap int

	// tokenizer measures and slices text in token space.
	tokenizer Tokenizer
}

// NewProcessor constructs a Processor. overlap must be strictly smaller than
// maxTokens or the sliding window would never advance.
func NewProcessor(maxTokens, overlap int, tokenizer Tokenizer) (*Processor, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("document: maxTokens must be positive, got %d", maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return nil, rag.NewValidationError("overlap",
			fmt.Sprintf("must be in [0, maxTokens), got overlap=%d maxTokens=%d", overlap, maxTokens))
	}
	if tokenizer == nil {
		return nil, fmt.Errorf("document: tokenizer must not be nil")
	}
	return &Processor{maxTokens: maxTokens, overlap: overlap, tokenizer: tokenizer}, nil
}

// Process parses content and returns its ordered chunk sequence.
// Frontmatter metadata is merged with meta; on key collision the
// caller-supplied value wins, because the ingestion API must be able to
// override a stale document header. Chunk indexes increase monotonically
// across the whole document, not per section.
func (p *Processor) Process(content string, meta rag.Metadata) ([]Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, rag.NewValidationError("content", "must not be empty or whitespace-only")
	}
	if err := rag.ValidateMetadata("metadata", meta); err != nil {
		return nil, err
	}

	fm, body := ParseFrontmatter(content)

	merged := make(rag.Metadata, len(fm)+len(meta))
	for k, v := range fm {
		merged[k] = v
	}
	for k, v := range meta {
		merged[k] = v
	}
	if err := rag.ValidateMetadata("frontmatter", merged); err != nil {
		return nil, err
	}

	var chunks []Chunk
	index := 0
	for _, section := range SplitByHeaders(body) {
		for _, text := range p.ChunkText(section) {
			meta := make(rag.Metadata, len(merged))
			for k, v := range merged {
				meta[k] = v
			}
			chunks = append(chunks, Chunk{
				Content:  text,
				Metadata: meta,
				Index:    index,
			})
			index++
		}
	}
	return chunks, nil
}

// ParseFrontmatter strips a leading YAML header delimited by "---" lines.
// Absent or malformed headers fail soft: the caller gets an empty map and
// the content unchanged. Malformed headers are common in scraped corpora
// and must never abort ingestion.
func ParseFrontmatter(content string) (rag.Metadata, string) {
	const delim = "---"

	if !strings.HasPrefix(content, delim+"\n") && content != delim {
		return rag.Metadata{}, content
	}

	// The closing fence must be a line that is exactly "---"; longer dash
	// runs such as "----" are horizontal rules, not delimiters.
	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == delim {
			end = i
			break
		}
	}
	if end < 0 {
		// Opening delimiter with no closing one: treat as body text.
		return rag.Metadata{}, content
	}

	header := strings.Join(lines[1:end], "\n")
	body := strings.Join(lines[end+1:], "\n")
	body = strings.TrimPrefix(body, "\n")

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(header), &raw); err != nil {
		return rag.Metadata{}, content
	}

	meta := make(rag.Metadata, len(raw))
	for k, v := range raw {
		meta[k] = v
	}
	return meta, body
}

// SplitByHeaders splits markdown into sections at heading lines (levels 1–3).
// Text before the first heading becomes its own leading section when
// non-empty. Each section starts at its heading line and runs to the next
// heading or the end of the body.
func SplitByHeaders(body string) []string {
	lines := strings.Split(body, "\n")

	var sections []string
	var current []string

	flush := func() {
		section := strings.TrimSpace(strings.Join(current, "\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = current[:0]
	}

	for _, line := range lines {
		if isHeading(line) {
			flush()
		}
		current = append(current, line)
	}
	flush()

	return sections
}

// isHeading reports whether line is a markdown heading of level 1–3.
func isHeading(line string) bool {
	trimmed := strings.TrimLeft(line, "#")
	hashes := len(line) - len(trimmed)
	if hashes < 1 || hashes > 3 {
		return false
	}
	return strings.HasPrefix(trimmed, " ")
}

// ChunkText splits text into token windows of at most maxTokens tokens.
// Text that already fits is returned unchanged as a single chunk, so short
// sections survive round-trip byte-identical. Longer text is sliced with a
// stride of maxTokens-overlap; the final window may be shorter.
func (p *Processor) ChunkText(text string) []string {
	tokens := p.tokenizer.Encode(text)
	if len(tokens) <= p.maxTokens {
		return []string{text}
	}

	stride := p.maxTokens - p.overlap
	var chunks []string
	for start := 0; start < len(tokens); start += stride {
		end := start + p.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, p.tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
