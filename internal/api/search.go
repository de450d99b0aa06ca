package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/querybridge/querybridge/internal/search"
)

type searchRequest struct {
	Query      string `json:"query"`
	NumResults *int   `json:"num_results"`
}

func handleSearch(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Searcher == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SEARCH_NOT_CONFIGURED", "searcher is not configured", false, nil)
		return
	}

	var request searchRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid search request body", false, map[string]any{"details": err.Error()})
		return
	}

	numResults := search.DefaultResults
	if request.NumResults != nil {
		numResults = *request.NumResults
	}

	results, err := deps.Searcher.Search(r.Context(), request.Query, numResults)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_QUERY", "Search query cannot be empty.", false, nil)
		case errors.Is(err, search.ErrInvalidResultCount):
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_RESULT_COUNT", "Number of results must be between 1 and 20.", false, nil)
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "SEARCH_FAILED", err.Error(), true, nil)
		}
		return
	}

	if len(results) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"results": []search.Result{}, "message": "No results found."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
