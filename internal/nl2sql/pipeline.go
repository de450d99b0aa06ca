package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querybridge/querybridge/internal/engine"
	"github.com/querybridge/querybridge/internal/observability"
)

// Step names one stage of a translation request. A request advances
// strictly in order and fails terminally at the first broken step; there
// are no partial retries between steps.
type Step string

const (
	StepSchemaResolved Step = "schema_resolved"
	StepQueryGenerated Step = "query_generated"
	StepNormalized     Step = "normalized"
	StepValidated      Step = "validated"
	StepExecuted       Step = "executed"
)

// StepError reports which pipeline step failed and how the failure should
// be classified: Upstream failures come from a dependency (model endpoint,
// database, object store); everything else is a rejection of the generated
// artifact or the caller's input.
type StepError struct {
	Step       Step
	Err        error
	Query      string
	Diagnostic string
	Upstream   bool
}

func (e *StepError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("%s: %s", e.Step, e.Diagnostic)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Pipeline runs the full natural-language-to-SQL sequence against one
// engine: schema resolve, prompt + generation, normalization, dry-run
// validation and (for FetchData) execution.
type Pipeline struct {
	Translator Translator
	Logger     *slog.Logger
}

// GenerateQuery runs the pipeline up to and including validation and
// returns the normalized query. A query that fails dry-run validation is
// never returned, so it can never reach execution.
func (p *Pipeline) GenerateQuery(ctx context.Context, eng engine.Engine, natural, schemaContext string) (string, error) {
	if p.Translator == nil {
		return "", &StepError{Step: StepQueryGenerated, Err: fmt.Errorf("translator is not configured"), Upstream: true}
	}

	if schemaContext == "" {
		fetched, err := eng.FetchSchema(ctx)
		if err != nil {
			observability.CountPipelineStep(string(StepSchemaResolved), "error")
			return "", &StepError{Step: StepSchemaResolved, Err: err, Upstream: true}
		}
		schemaContext = fetched
	}
	observability.CountPipelineStep(string(StepSchemaResolved), "ok")

	start := time.Now()
	result, err := p.Translator.Translate(ctx, Request{
		NaturalLanguage: natural,
		SchemaContext:   schemaContext,
		Dialect:         eng.Dialect(),
	})
	observability.ObserveTranslationLatency(time.Since(start))
	if err != nil {
		observability.CountPipelineStep(string(StepQueryGenerated), "error")
		return "", &StepError{Step: StepQueryGenerated, Err: err, Upstream: true}
	}
	observability.CountPipelineStep(string(StepQueryGenerated), "ok")

	normalized := Normalize(result.SQL)
	if normalized == "" {
		observability.CountPipelineStep(string(StepNormalized), "error")
		return "", &StepError{Step: StepNormalized, Err: fmt.Errorf("generated query is empty after normalization")}
	}
	observability.CountPipelineStep(string(StepNormalized), "ok")

	ok, diagnostic, err := eng.Validate(ctx, normalized)
	if err != nil {
		observability.CountPipelineStep(string(StepValidated), "error")
		return "", &StepError{Step: StepValidated, Err: err, Query: normalized, Upstream: true}
	}
	if !ok {
		observability.CountPipelineStep(string(StepValidated), "rejected")
		return "", &StepError{
			Step:       StepValidated,
			Err:        fmt.Errorf("query failed validation"),
			Query:      normalized,
			Diagnostic: diagnostic,
		}
	}
	observability.CountPipelineStep(string(StepValidated), "ok")

	if p.Logger != nil {
		p.Logger.InfoContext(ctx, "generated query",
			slog.String("provider", result.Provider),
			slog.String("model", result.Model),
			slog.String("query", normalized),
		)
	}
	return normalized, nil
}

// FetchData runs the full pipeline and executes the validated query.
func (p *Pipeline) FetchData(ctx context.Context, eng engine.Engine, natural, schemaContext string) (string, []engine.Record, error) {
	query, err := p.GenerateQuery(ctx, eng, natural, schemaContext)
	if err != nil {
		return "", nil, err
	}

	records, err := eng.Execute(ctx, query)
	if err != nil {
		observability.CountPipelineStep(string(StepExecuted), "error")
		if engine.IsQueryError(err) {
			return "", nil, &StepError{Step: StepExecuted, Err: err, Query: query, Diagnostic: err.Error()}
		}
		return "", nil, &StepError{Step: StepExecuted, Err: err, Query: query, Upstream: true}
	}
	observability.CountPipelineStep(string(StepExecuted), "ok")
	return query, records, nil
}
