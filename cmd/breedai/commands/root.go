// Package commands defines all Cobra CLI commands for the breedai binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/pawlabs/breedai-go/internal/audit"
	"github.com/pawlabs/breedai-go/internal/config"
	"github.com/pawlabs/breedai-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "breedai",
		Short: "BreedAI — grounded pet breed Q&A powered by retrieval-augmented LLMs",
		Long: `BreedAI answers health and care questions about pet breeds, grounded
exclusively on a locally ingested document collection.

It ingests markdown breed documentation into a Qdrant vector store, retrieves
the most relevant chunks for each question, and asks an LLM to answer using
only that context — every answer cites the source files it came from.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.breedai/config.yaml).
See 'breedai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.breedai/config.yaml)")

	root.AddCommand(
		NewQueryCmd(),
		NewEnrichCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewStatsCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}
