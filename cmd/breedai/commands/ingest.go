package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pawlabs/breedai-go/internal/embedder"
	"github.com/pawlabs/breedai-go/internal/ingestion"
	"github.com/pawlabs/breedai-go/internal/logging"
	"github.com/pawlabs/breedai-go/internal/rag"
)

// NewIngestCmd constructs the `breedai ingest` command, which chunks, embeds,
// and indexes a directory of breed documents into the vector store.
func NewIngestCmd() *cobra.Command {
	var (
		species string
		breed   string
		docType string
	)

	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Ingest breed documents into the vector store",
		Long: `Chunk, embed, and index a directory of breed documents (.md, .txt).

Documents laid out as {species}/{breed}/{doc_type}.md get their metadata
inferred from the path; YAML frontmatter inside a document overrides the
path, and explicit flags override both. Re-ingesting the same files
overwrites the existing chunks instead of duplicating them.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: breed-docs)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure, gemini
  CHUNK_MAX_TOKENS     Chunk size in tokens (default: 500)
  CHUNK_OVERLAP        Overlap between adjacent chunks (default: 50)

Examples:
  breedai ingest ./docs
  breedai ingest --species dog ./docs/dogs
  breedai ingest --species cat --breed siamese --doc-type care ./notes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embeddingBackend()))

			store, err := buildStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			processor, err := buildProcessor()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			pipeline, err := ingestion.NewPipeline(emb, store, processor)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			overrides := rag.Metadata{}
			if species != "" {
				overrides["species"] = species
			}
			if breed != "" {
				overrides["breed"] = breed
			}
			if docType != "" {
				overrides["doc_type"] = docType
			}

			dir := args[0]
			log.Info("starting ingestion", slog.String("dir", dir))

			chunks, err := pipeline.IngestDir(ctx, dir, overrides, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete", slog.Int("chunks", chunks))
			fmt.Printf("Ingested %d chunks from %s\n", chunks, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&species, "species", "", "Species label applied to every document (e.g. dog, cat)")
	cmd.Flags().StringVar(&breed, "breed", "", "Breed key applied to every document (e.g. golden_retriever)")
	cmd.Flags().StringVar(&docType, "doc-type", "", "Document type applied to every document (e.g. health, care)")

	return cmd
}
