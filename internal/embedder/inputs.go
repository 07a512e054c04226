package embedder

import (
	"fmt"
	"strings"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// validateBatch rejects embedding inputs that every backend would either
// error on or, worse, silently embed as noise. Runs before any network I/O.
func validateBatch(texts []string) error {
	if len(texts) == 0 {
		return rag.NewValidationError("texts", "batch must not be empty")
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return rag.NewValidationError(
				fmt.Sprintf("texts[%d]", i), "must not be empty or whitespace-only")
		}
	}
	return nil
}
