package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/querybridge/querybridge/internal/engine"
	"github.com/querybridge/querybridge/internal/nl2sql"
)

type queryRequest struct {
	NaturalLanguageQuery string             `json:"natural_language_query"`
	SchemaContext        string             `json:"schema_context"`
	DBConfig             *engine.Descriptor `json:"db_config"`
}

func handleGenerateQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	request, eng, ok := prepareQuery(deps, w, r)
	if !ok {
		return
	}

	query, err := deps.Pipeline.GenerateQuery(r.Context(), eng, request.NaturalLanguageQuery, request.SchemaContext)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"query": query})
}

func handleFetchData(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	request, eng, ok := prepareQuery(deps, w, r)
	if !ok {
		return
	}

	query, records, err := deps.Pipeline.FetchData(r.Context(), eng, request.NaturalLanguageQuery, request.SchemaContext)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	if records == nil {
		records = []engine.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "data": records})
}

// prepareQuery decodes the request, validates the natural language input and
// resolves the target engine. On failure it writes the error response and
// returns ok=false.
func prepareQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) (queryRequest, engine.Engine, bool) {
	if deps.Pipeline == nil || deps.Engines == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return queryRequest{}, nil, false
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return queryRequest{}, nil, false
	}

	if strings.TrimSpace(request.NaturalLanguageQuery) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "natural_language_query is required", false, nil)
		return queryRequest{}, nil, false
	}

	descriptor, err := resolveDescriptor(deps, request.DBConfig)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ENGINE_CONFIG", err.Error(), false, nil)
		return queryRequest{}, nil, false
	}

	eng, err := deps.Engines(r.Context(), descriptor)
	if err != nil {
		if errors.Is(err, engine.ErrUnsupportedEngine) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ENGINE_CONFIG", err.Error(), false, nil)
			return queryRequest{}, nil, false
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ENGINE_UNAVAILABLE", err.Error(), true, nil)
		return queryRequest{}, nil, false
	}

	return request, eng, true
}

func resolveDescriptor(deps Dependencies, override *engine.Descriptor) (engine.Descriptor, error) {
	if override == nil {
		if deps.DefaultDescriptor == nil {
			return engine.Descriptor{}, errors.New("no db_config given and no default target configured")
		}
		return deps.DefaultDescriptor(deps.DefaultKind)
	}

	descriptor := *override
	if descriptor.Kind == "" {
		descriptor.Kind = engine.KindRelational
	}
	if err := descriptor.Validate(); err != nil {
		return engine.Descriptor{}, err
	}
	return descriptor, nil
}

// writePipelineError maps a pipeline failure onto the HTTP error contract:
// rejected artifacts are client errors carrying the offending query and its
// diagnostic, upstream failures are retryable server errors.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var stepErr *nl2sql.StepError
	if !errors.As(err, &stepErr) {
		writeError(r.Context(), w, http.StatusInternalServerError, "PIPELINE_FAILED", err.Error(), true, nil)
		return
	}

	if stepErr.Upstream {
		writeError(r.Context(), w, http.StatusInternalServerError, "UPSTREAM_FAILED", stepErr.Error(), true, map[string]any{
			"step": string(stepErr.Step),
		})
		return
	}

	extra := map[string]any{"step": string(stepErr.Step)}
	if stepErr.Query != "" {
		extra["generated_query"] = stepErr.Query
	}
	if stepErr.Diagnostic != "" {
		extra["diagnostic"] = stepErr.Diagnostic
	}
	writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REJECTED", stepErr.Error(), false, extra)
}
