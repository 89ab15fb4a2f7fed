// Package api exposes product capture and listing traversal over HTTP.
// Handlers borrow a fresh page source per request and drop it when done;
// nothing is stored server-side.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/meli-tools/meli-scraper/internal/extract"
	"github.com/meli-tools/meli-scraper/internal/models"
	"github.com/meli-tools/meli-scraper/internal/page"
	"github.com/meli-tools/meli-scraper/internal/ratelimit"
	"github.com/meli-tools/meli-scraper/internal/scraper"
)

// SourceFactory mints one page source per request. The server wires it to
// the shared browser; tests wire it to fixture documents.
type SourceFactory func() (page.Source, error)

type Handlers struct {
	products *scraper.ProductScraper
	search   *scraper.SearchScraper
	sources  SourceFactory
	limiter  ratelimit.RateLimiter
	logger   *slog.Logger
}

func NewHandlers(products *scraper.ProductScraper, search *scraper.SearchScraper, sources SourceFactory, limiter ratelimit.RateLimiter, logger *slog.Logger) *Handlers {
	return &Handlers{
		products: products,
		search:   search,
		sources:  sources,
		limiter:  limiter,
		logger:   logger,
	}
}

// ProductRequest asks for one product page capture.
type ProductRequest struct {
	URL string `json:"url"`
}

// GetProduct captures a product page and returns the full record.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.limiter.Wait(r.Context()); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "capture capacity exhausted")
		return
	}

	src, err := h.sources()
	if err != nil {
		h.logger.Error("failed to open page source", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "no page source available")
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			h.logger.Warn("failed to close page source", "error", err)
		}
	}()

	rec, err := h.products.Scrape(r.Context(), src, req.URL)
	if err != nil {
		h.respondScrapeError(w, req.URL, err)
		return
	}

	h.respondJSON(w, http.StatusOK, rec)
}

// SearchRequest asks for a bounded traversal of a results listing.
type SearchRequest struct {
	URL   string `json:"url"`
	Limit int    `json:"limit"`
	Pages int    `json:"pages"`
}

type SearchResponse struct {
	Results []models.SearchResultItem `json:"results"`
	Count   int                       `json:"count"`
}

// GetSearch walks a results listing and returns the collected items.
func (h *Handlers) GetSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.limiter.Wait(r.Context()); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "capture capacity exhausted")
		return
	}

	src, err := h.sources()
	if err != nil {
		h.logger.Error("failed to open page source", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "no page source available")
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			h.logger.Warn("failed to close page source", "error", err)
		}
	}()

	results, err := h.search.Scrape(r.Context(), src, req.URL, req.Limit, req.Pages)
	if err != nil {
		h.respondScrapeError(w, req.URL, err)
		return
	}

	h.respondJSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Count:   len(results),
	})
}

// respondScrapeError maps the extraction error taxonomy onto status codes: a
// page that is not available is the client's 404, a broken page source is an
// upstream failure.
func (h *Handlers) respondScrapeError(w http.ResponseWriter, url string, err error) {
	var infra *extract.InfrastructureError

	switch {
	case errors.Is(err, scraper.ErrProductNotAvailable):
		h.logger.Info("product not available", "url", url)
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &infra):
		h.logger.Error("page source failure", "url", url, "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("capture failed", "url", url, "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
