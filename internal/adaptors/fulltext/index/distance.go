package fulltextindex

import (
	"github.com/blevesearch/bleve/v2/search"
)

const defaultMaxEdits = 2

// maxEditsFor bounds how far a fuzzy expansion may drift from a query token
// of the given rune length.
func maxEditsFor(length, limit int) int {
	var edits int
	switch {
	case length < 3:
		edits = 0
	case length < 5:
		edits = 1
	default:
		edits = 2
	}

	return min(edits, limit)
}

// editDistance is the byte level levenshtein distance between a and b, or
// limit+1 once it is known to exceed limit. A swap of adjacent bytes costs two.
func editDistance(a, b string, limit int) int {
	distance, exceeded := search.LevenshteinDistanceMax(a, b, limit)
	// the row minimum can stay within limit while the final cell exceeds it.
	if exceeded || distance > limit {
		return limit + 1
	}

	return distance
}
