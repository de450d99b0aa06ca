package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/querybridge/querybridge/internal/analyze"
)

type analyzeRequest struct {
	Text string `json:"text"`
}

func handleAnalyze(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Analyzer == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ANALYZE_NOT_CONFIGURED", "analyzer is not configured", false, nil)
		return
	}

	var request analyzeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid analyze request body", false, map[string]any{"details": err.Error()})
		return
	}

	analysis, err := deps.Analyzer.Analyze(r.Context(), request.Text)
	if err != nil {
		if errors.Is(err, analyze.ErrEmptyText) {
			writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_TEXT", "Text cannot be empty.", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "ANALYSIS_FAILED", err.Error(), true, nil)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}
