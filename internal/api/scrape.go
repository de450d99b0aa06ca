package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/querybridge/querybridge/internal/scrape"
)

type scrapeRequest struct {
	ItemName string `json:"item_name"`
}

func handleScrape(deps Dependencies, w http.ResponseWriter, r *http.Request, retailer string) {
	if deps.Scraper == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCRAPE_NOT_CONFIGURED", "scraper is not configured", false, nil)
		return
	}

	var request scrapeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid scrape request body", false, map[string]any{"details": err.Error()})
		return
	}

	var scrapeFn func(context.Context, string) ([]scrape.Product, error)
	switch retailer {
	case "Amazon":
		scrapeFn = deps.Scraper.Amazon
	case "Walmart":
		scrapeFn = deps.Scraper.Walmart
	case "Target":
		scrapeFn = deps.Scraper.Target
	default:
		writeError(r.Context(), w, http.StatusNotFound, "UNKNOWN_RETAILER", fmt.Sprintf("unknown retailer %q", retailer), false, nil)
		return
	}

	products, err := scrapeFn(r.Context(), request.ItemName)
	if err != nil {
		var upstream *scrape.UpstreamError
		switch {
		case errors.Is(err, scrape.ErrEmptyItemName):
			writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_ITEM_NAME", "Item name cannot be empty.", false, nil)
		case errors.As(err, &upstream):
			writeError(r.Context(), w, http.StatusInternalServerError, "FETCH_FAILED", err.Error(), true, nil)
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "SCRAPE_FAILED", err.Error(), true, nil)
		}
		return
	}

	if len(products) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"results": []scrape.Product{},
			"message": fmt.Sprintf("No products found on %s.", retailer),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": products})
}
