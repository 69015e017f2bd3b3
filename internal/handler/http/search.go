// Package http exposes the storefront search, suggestion and admin sync
// endpoints.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/glowcart/storefront-search/internal/domain"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
	"github.com/glowcart/storefront-search/pkg/httputil"
	"github.com/glowcart/storefront-search/pkg/logger"
)

const unavailableMessage = "search temporarily unavailable"

// Searcher runs search and listing requests.
type Searcher interface {
	Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error)
}

// SearchHandler handles the search and product listing endpoints.
type SearchHandler struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(searcher Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

type searchResponse struct {
	Products []domain.ProductHit `json:"products"`
	Error    string              `json:"error,omitempty"`
}

type listResponse struct {
	Products   []domain.ProductHit `json:"products"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"totalPages"`
	TookMs     int64               `json:"tookMs"`
	Error      string              `json:"error,omitempty"`
}

// Search handles GET /api/v1/search?q=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httputil.WriteJSON(w, http.StatusOK, searchResponse{Products: []domain.ProductHit{}})
		return
	}

	result, err := h.searcher.Search(r.Context(), domain.SearchParams{Query: q})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			httputil.WriteJSON(w, http.StatusBadRequest, searchResponse{
				Products: []domain.ProductHit{},
				Error:    errorMessage(err),
			})
			return
		}
		h.unavailable(r, err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, searchResponse{
			Products: []domain.ProductHit{},
			Error:    unavailableMessage,
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, searchResponse{Products: hits(result.Products)})
}

// List handles GET /api/v1/products
func (h *SearchHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.searcher.Search(r.Context(), params)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		h.unavailable(r, err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, listResponse{
			Products: []domain.ProductHit{},
			Page:     max(params.Page, 1),
			Limit:    params.Limit,
			Error:    unavailableMessage,
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Products:   hits(result.Products),
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
		TookMs:     result.TookMs,
	})
}

func (h *SearchHandler) unavailable(r *http.Request, err error) {
	logger.FromContext(r.Context(), h.logger).ErrorContext(r.Context(), "search failed",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
	)
}

func listParams(r *http.Request) (domain.SearchParams, error) {
	params := domain.SearchParams{
		Query:       strings.TrimSpace(r.URL.Query().Get("q")),
		Category:    httputil.QueryString(r, "category"),
		Subcategory: httputil.QueryString(r, "subcategory"),
		Sort:        strings.TrimSpace(r.URL.Query().Get("sort")),
	}

	var err error
	if params.MinPrice, err = httputil.QueryFloat(r, "min_price"); err != nil {
		return params, err
	}
	if params.MaxPrice, err = httputil.QueryFloat(r, "max_price"); err != nil {
		return params, err
	}
	if params.MinRating, err = httputil.QueryFloat(r, "min_rating"); err != nil {
		return params, err
	}
	if params.InStockOnly, err = httputil.QueryBool(r, "in_stock"); err != nil {
		return params, err
	}
	if params.Page, err = httputil.QueryInt(r, "page", 1); err != nil {
		return params, err
	}
	if params.Limit, err = httputil.QueryInt(r, "limit", domain.DefaultPageSize); err != nil {
		return params, err
	}
	return params, nil
}

func hits(products []domain.ProductHit) []domain.ProductHit {
	if products == nil {
		return []domain.ProductHit{}
	}
	return products
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
