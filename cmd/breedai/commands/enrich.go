package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pawlabs/breedai-go/internal/enrich"
	"github.com/pawlabs/breedai-go/internal/logging"
)

// NewEnrichCmd constructs the `breedai enrich` command, which builds a
// structured breed profile from the ingested document collection.
func NewEnrichCmd() *cobra.Command {
	var (
		parents    []string
		topK       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "enrich [breed]",
		Short: "Build a breed profile (description, care, health) from the collection",
		Long: `Build a structured profile for a breed or a crossbreed.

For a single breed, pass its name as the argument. For a crossbreed, pass
the parent breeds with repeated --parent flags; the profile is synthesized
from both parents' documents and is independent of parent order.

Examples:
  breedai enrich "Golden Retriever"
  breedai enrich --parent poodle --parent labrador
  breedai enrich siamese --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			single := len(args) == 1
			cross := len(parents) > 0
			if single == cross {
				return fmt.Errorf("enrich: pass either a breed name or --parent flags, not both")
			}

			deps, closeDeps, err := buildService(ctx, log, true)
			if err != nil {
				return fmt.Errorf("enrich: %w", err)
			}
			defer closeDeps()

			composer, err := enrich.NewComposer(deps.Service, topK)
			if err != nil {
				return fmt.Errorf("enrich: %w", err)
			}

			var info *enrich.Info
			if single {
				info, err = composer.EnrichSingle(ctx, args[0])
			} else {
				info, err = composer.EnrichCrossbreed(ctx, parents)
			}
			if err != nil {
				return fmt.Errorf("enrich: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			printInfo(info)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&parents, "parent", nil, "Parent breed of a crossbreed (repeat for each parent)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve per query (0 = default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the profile as JSON")

	return cmd
}

// printInfo renders a breed profile for terminal output.
func printInfo(info *enrich.Info) {
	if info.Breed != "" {
		fmt.Printf("Breed: %s\n\n", info.Breed)
	} else {
		fmt.Printf("Crossbreed of: %v\n\n", info.ParentBreeds)
	}
	fmt.Printf("Description:\n%s\n", info.Description)
	if info.CareSummary != "" {
		fmt.Printf("\nCare:\n%s\n", info.CareSummary)
	}
	if info.HealthInfo != "" {
		fmt.Printf("\nHealth:\n%s\n", info.HealthInfo)
	}
	if len(info.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range info.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}
}
