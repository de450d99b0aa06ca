package nl2sql

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the fixed generation instruction. The dialect name
// only changes the instruction text, never the call semantics.
func BuildPrompt(natural, schemaContext, dialect string) string {
	return fmt.Sprintf(
		"Convert the following natural language request into a single %s SELECT query.\n"+
			"Request: %s\n"+
			"Schema:\n%s\n"+
			"Provide only the SQL query as output, without any explanation or Markdown formatting.",
		dialect,
		strings.TrimSpace(natural),
		schemaContext,
	)
}
