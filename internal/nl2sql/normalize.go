package nl2sql

import (
	"regexp"
	"strings"
)

var (
	fencePattern      = regexp.MustCompile("(?i)```sql\\s*|\\s*```")
	terminatorPattern = regexp.MustCompile(`;\s*$`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize cleans the raw model output into a single-line query: code
// fence markers are removed (case-insensitive), exactly one trailing
// statement terminator is stripped, and whitespace runs collapse to single
// spaces. It is a textual heuristic with no knowledge of SQL grammar.
func Normalize(raw string) string {
	cleaned := fencePattern.ReplaceAllString(raw, "")
	cleaned = terminatorPattern.ReplaceAllString(cleaned, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
