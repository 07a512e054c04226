package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pawlabs/breedai-go/internal/logging"
)

// NewStatsCmd constructs the `breedai stats` command, which reports how many
// chunks are stored in the vector collection.
func NewStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vector collection statistics",
		Long: `Report the collection name and stored chunk count from the vector store.

Examples:
  breedai stats
  breedai stats --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			deps, closeDeps, err := buildService(ctx, log, false)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer closeDeps()

			stats, err := deps.Service.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Printf("Collection: %s\n", stats.Collection)
			fmt.Printf("Chunks:     %d\n", stats.Records)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print statistics as JSON")

	return cmd
}
