// Package domain holds the pure value types of the counting pipeline:
// words, patterns, word indices and count records. Nothing in this
// package touches the filesystem or a logger.
package domain

import "strings"

// Reserved marker strings. Producer (Sequencer) and consumer (estimators,
// Cache) must agree on these; they are forbidden in corpus tokens.
const (
	SkipMarker         = "_"
	WeightedSkipMarker = "%"
	POSSeparator       = "/"
)

// Word is a single corpus token. It is never empty and never contains a
// reserved marker; both are enforced at tokenisation time, not here.
type Word = string

// ReservedSymbol reports which reserved marker, if any, occurs in w.
// It returns "" when w contains none.
func ReservedSymbol(w string) string {
	switch {
	case strings.Contains(w, SkipMarker):
		return SkipMarker
	case strings.Contains(w, WeightedSkipMarker):
		return WeightedSkipMarker
	case strings.Contains(w, POSSeparator):
		return POSSeparator
	default:
		return ""
	}
}
