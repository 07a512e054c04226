// Package ingestion implements the document ingestion pipeline. It walks a
// local corpus of breed documentation, parses and chunks each file, embeds
// the chunks in one batch per document, and upserts the results into the
// vector store. The pipeline is invoked by the `breedai ingest` CLI command.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pawlabs/breedai-go/internal/document"
	"github.com/pawlabs/breedai-go/internal/rag"
)

// chunkNamespace is the UUIDv5 namespace for chunk IDs. Fixed so the same
// chunk always maps to the same point ID and re-ingestion overwrites rather
// than duplicates.
var chunkNamespace = uuid.MustParse("8f1a6f2e-3bfb-4f07-9d6e-5b1f12f6a001")

// docExtensions are the file extensions the directory walk picks up.
var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Pipeline orchestrates the parse → chunk → embed → upsert flow.
type Pipeline struct {
	// embedder converts chunk contents into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// processor parses and chunks raw documents.
	processor *document.Processor
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, processor *document.Processor) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("ingestion: processor must not be nil")
	}
	return &Pipeline{embedder: embedder, store: store, processor: processor}, nil
}

// IngestDir walks dir for documentation files and ingests each one.
// overrides are caller-supplied metadata keys that win over both frontmatter
// and path-inferred values. Files are processed in sorted order so repeated
// runs are deterministic. Returns the total number of chunks written.
// Progress is reported via the optional progress callback.
func (p *Pipeline) IngestDir(ctx context.Context, dir string, overrides rag.Metadata, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if docExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ingestion: walking %s: %w", dir, err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		return 0, fmt.Errorf("ingestion: no documentation files found under %s", dir)
	}

	total := 0
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("ingestion: reading %s: %w", path, err)
		}

		n, err := p.IngestDocument(ctx, rel, string(raw), overrides)
		if err != nil {
			return total, err
		}
		total += n
		progress(fmt.Sprintf("ingested %d chunks from %s", n, rel))
	}

	return total, nil
}

// IngestDocument chunks, embeds, and stores one document. source is the
// document's identifier (typically its corpus-relative path) and becomes the
// "source" metadata key on every chunk. Metadata precedence, weakest first:
// path-inferred, frontmatter, caller overrides. Returns the number of chunks
// written.
func (p *Pipeline) IngestDocument(ctx context.Context, source, content string, overrides rag.Metadata) (int, error) {
	if strings.TrimSpace(source) == "" {
		return 0, rag.NewValidationError("source", "must not be empty")
	}

	// The source key and overrides go in as caller metadata so they beat
	// anything a stale frontmatter block claims.
	caller := rag.Metadata{"source": source}
	for k, v := range overrides {
		caller[k] = v
	}

	chunks, err := p.processor.Process(content, caller)
	if err != nil {
		return 0, fmt.Errorf("ingestion: processing %s: %w", source, err)
	}

	applyInferred(chunks, InferMetadata(source))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("ingestion: embedding %s: %w", source, err)
	}

	records := make([]rag.Record, len(chunks))
	for i, c := range chunks {
		meta := make(rag.Metadata, len(c.Metadata)+1)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta["chunk_index"] = c.Index

		records[i] = rag.Record{
			ID:       ChunkID(source, c.Content, c.Index),
			Content:  c.Content,
			Source:   source,
			Metadata: meta,
		}
	}

	if err := p.store.Upsert(ctx, records, embeddings); err != nil {
		return 0, fmt.Errorf("ingestion: upsert for %s: %w", source, err)
	}

	return len(records), nil
}

// applyInferred fills species/breed/doc_type from the path inference for
// chunks that don't already carry them from frontmatter or overrides.
func applyInferred(chunks []document.Chunk, inferred InferredMetadata) {
	defaults := map[string]string{
		"species":  inferred.Species,
		"breed":    inferred.Breed,
		"doc_type": inferred.DocType,
	}
	for _, c := range chunks {
		for k, v := range defaults {
			if v == "" {
				continue
			}
			if _, ok := c.Metadata[k]; !ok {
				c.Metadata[k] = v
			}
		}
	}
}

// ChunkID derives the stable UUID for a chunk from its source, content, and
// position. Identical content at the same position always yields the same
// ID, making re-ingestion an overwrite instead of an append.
func ChunkID(source, content string, index int) string {
	digest := sha256.Sum256([]byte(content))
	name := fmt.Sprintf("%s#%d#%x", source, index, digest)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
