package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/querybridge/querybridge/internal/assist"
)

type greetRequest struct {
	Hour *int `json:"hour"`
}

type processRequest struct {
	Text string `json:"text"`
}

func handleGreet(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Greeter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GREET_NOT_CONFIGURED", "greeter is not configured", false, nil)
		return
	}

	var request greetRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid greet request body", false, map[string]any{"details": err.Error()})
		return
	}

	greeting, err := deps.Greeter.Greet(request.Hour)
	if err != nil {
		if errors.Is(err, assist.ErrInvalidHour) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_HOUR", "Hour must be between 0 and 23.", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "GREET_FAILED", err.Error(), true, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"greeting": greeting})
}

func handleProcess(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request processRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid process request body", false, map[string]any{"details": err.Error()})
		return
	}

	result, err := assist.Decorate(request.Text)
	if err != nil {
		if errors.Is(err, assist.ErrEmptyText) {
			writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_TEXT", "Text cannot be empty.", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "PROCESS_FAILED", err.Error(), true, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
