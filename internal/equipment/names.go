package equipment

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldName normalizes a product name for identity matching: full Unicode
// case folding with surrounding whitespace removed.
func FoldName(name string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(name))
}
