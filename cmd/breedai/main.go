// Command breedai is the entry point for the BreedAI assistant.
// It provides a CLI (via Cobra) for ingesting breed documents and asking
// grounded questions, and an optional HTTP server exposing the same
// capabilities as a JSON API.
package main

import (
	"fmt"
	"os"

	"github.com/pawlabs/breedai-go/cmd/breedai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
