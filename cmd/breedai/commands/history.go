package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pawlabs/breedai-go/internal/store"
)

// NewHistoryCmd constructs the `breedai history` command, which lists
// previously answered questions from the local history database.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered questions",
		Long: `List recently answered questions, newest first, with the model that
answered them and the source files each answer was grounded on.

History is recorded by 'breedai query' and the HTTP server in
~/.breedai/history.db (override with BREEDAI_HISTORY_DB).

Examples:
  breedai history
  breedai history --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := os.Getenv("BREEDAI_HISTORY_DB")
			if dbPath == "" || dbPath == "disabled" {
				p, err := store.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				dbPath = p
			}

			hs, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("history: failed to open %s: %w", dbPath, err)
			}
			defer hs.Close()

			entries, err := hs.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("No history yet — ask something with 'breedai query'.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  [%s, %s]\n", e.CreatedAt.Format(time.DateTime), e.Model, e.Duration.Round(time.Millisecond))
				fmt.Printf("  Q: %s\n", e.Question)
				for _, s := range e.Sources {
					fmt.Printf("     - %s\n", s)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")

	return cmd
}
