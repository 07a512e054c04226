package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pawlabs/breedai-go/internal/logging"
	"github.com/pawlabs/breedai-go/internal/rag"
	"github.com/pawlabs/breedai-go/internal/store"
)

// NewQueryCmd constructs the `breedai query` command, which answers a single
// question grounded on the ingested document collection.
func NewQueryCmd() *cobra.Command {
	var (
		species    string
		breed      string
		docType    string
		topK       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a breed health or care question",
		Long: `Ask a natural language question about pet breed health and care.

The answer is grounded exclusively on documents previously ingested with
'breedai ingest' — every response lists the source files it was built from.
Retrieval can be narrowed with metadata filters.

Examples:
  breedai query "what health issues affect golden retrievers?"
  breedai query --species dog --breed poodle "how often should I groom?"
  breedai query --doc-type nutrition "what should a senior cat eat?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			deps, closeDeps, err := buildService(ctx, log, true)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer closeDeps()

			filters := rag.Metadata{}
			if species != "" {
				filters["species"] = species
			}
			if breed != "" {
				filters["breed"] = breed
			}
			if docType != "" {
				filters["doc_type"] = docType
			}

			question := strings.Join(args, " ")

			start := time.Now()
			resp, err := deps.Service.Query(ctx, question, filters, topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			elapsed := time.Since(start)

			recordQueryHistory(cmd, log, question, resp, elapsed)

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Println(resp.Answer)
			if len(resp.Sources) > 0 {
				fmt.Println("\nSources:")
				for i, s := range resp.Sources {
					fmt.Printf("  [%d] %s (relevance %.2f)\n", i+1, s.SourceFile, s.RelevanceScore)
				}
			}
			fmt.Printf("\nAnswered by %s in %s\n", resp.Model, elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&species, "species", "", "Restrict retrieval to a species (e.g. dog, cat)")
	cmd.Flags().StringVar(&breed, "breed", "", "Restrict retrieval to a breed key (e.g. golden_retriever)")
	cmd.Flags().StringVar(&docType, "doc-type", "", "Restrict retrieval to a document type (e.g. health, care, nutrition)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (0 = service default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full response as JSON")

	return cmd
}

// recordQueryHistory appends the answered question to the local history
// database. History failures are logged and never fail the command.
// BREEDAI_HISTORY_DB overrides the default path (~/.breedai/history.db);
// set it to "disabled" to skip recording.
func recordQueryHistory(cmd *cobra.Command, log *slog.Logger, question string, resp *rag.Response, elapsed time.Duration) {
	dbPath := os.Getenv("BREEDAI_HISTORY_DB")
	if dbPath == "disabled" {
		return
	}
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path", slog.Any("error", err))
			return
		}
		dbPath = p
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store", slog.Any("error", err))
		return
	}
	defer hs.Close()

	sources := make([]string, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		sources = append(sources, s.SourceFile)
	}
	err = hs.Append(cmd.Context(), store.Entry{
		Question: question,
		Model:    resp.Model,
		Sources:  sources,
		Duration: elapsed,
	})
	if err != nil {
		log.Warn("history: append failed", slog.Any("error", err))
	}
}
