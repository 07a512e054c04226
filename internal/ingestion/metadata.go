package ingestion

import (
	"path/filepath"
	"strings"
)

// InferredMetadata holds the species, breed, and doc type inferred from a
// document's path within the corpus tree. CLI flags take precedence over
// inferred values — this is the best-effort fallback when the user doesn't
// specify explicit metadata, and frontmatter in the document itself also
// outranks it.
type InferredMetadata struct {
	// Species is the singular species label (dog, cat, rabbit, ...).
	Species string
	// Breed is the breed storage key (lowercase, underscore-joined).
	Breed string
	// DocType classifies the document (health, care, nutrition, grooming,
	// training, overview).
	DocType string
}

// speciesAliases maps directory names (typically plural) to the canonical
// singular species label used as the filterable facet.
var speciesAliases = map[string]string{
	"dog":      "dog",
	"dogs":     "dog",
	"cat":      "cat",
	"cats":     "cat",
	"bird":     "bird",
	"birds":    "bird",
	"rabbit":   "rabbit",
	"rabbits":  "rabbit",
	"reptile":  "reptile",
	"reptiles": "reptile",
	"fish":     "fish",
	"horse":    "horse",
	"horses":   "horse",
	"rodent":   "rodent",
	"rodents":  "rodent",
}

// docTypeAliases maps filename stems to the canonical doc_type facet.
var docTypeAliases = map[string]string{
	"health":    "health",
	"care":      "care",
	"grooming":  "grooming",
	"nutrition": "nutrition",
	"diet":      "nutrition",
	"feeding":   "nutrition",
	"training":  "training",
	"behavior":  "training",
	"overview":  "overview",
	"general":   "overview",
	"breed":     "overview",
	"index":     "overview",
	"readme":    "overview",
}

// InferMetadata inspects a document's path relative to the corpus root and
// returns best-effort metadata. The expected layout is
//
//	{species}/{breed}/{doc_type}.md      e.g. dogs/golden_retriever/health.md
//	{species}/{breed}.md                 e.g. cats/siamese.md
//
// Paths that don't match leave the corresponding fields empty so stronger
// metadata sources (frontmatter, CLI flags) are the only ones applied.
func InferMetadata(relPath string) InferredMetadata {
	var m InferredMetadata

	segments := splitPath(relPath)
	if len(segments) == 0 {
		return m
	}

	stem := fileStem(segments[len(segments)-1])
	dirs := segments[:len(segments)-1]

	if len(dirs) > 0 {
		if species, ok := speciesAliases[dirs[0]]; ok {
			m.Species = species
			dirs = dirs[1:]
		}
	}

	switch {
	case len(dirs) > 0:
		// {species}/{breed}/{doc_type}.md — the deepest directory names the breed.
		m.Breed = breedKey(dirs[len(dirs)-1])
		if dt, ok := docTypeAliases[stem]; ok {
			m.DocType = dt
		}
	case m.Species != "":
		// {species}/{breed}.md — the filename names the breed.
		m.Breed = breedKey(stem)
		m.DocType = "overview"
	default:
		if dt, ok := docTypeAliases[stem]; ok {
			m.DocType = dt
		}
	}

	return m
}

// splitPath returns the non-empty lowercase segments of a slash- or
// OS-separated relative path.
func splitPath(relPath string) []string {
	normalized := strings.ToLower(filepath.ToSlash(relPath))
	parts := strings.Split(normalized, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

// fileStem strips the extension from a filename.
func fileStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// breedKey normalizes a directory or file name to the breed storage key:
// lowercase with spaces and hyphens collapsed to underscores.
func breedKey(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}
