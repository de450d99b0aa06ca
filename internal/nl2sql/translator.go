package nl2sql

import "context"

type Request struct {
	NaturalLanguage string `json:"natural_language"`
	SchemaContext   string `json:"schema_context"`
	Dialect         string `json:"dialect"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Translator turns a natural language request into a single SQL statement.
// Implementations make exactly one attempt; transient upstream failures are
// returned as terminal errors for the request.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
