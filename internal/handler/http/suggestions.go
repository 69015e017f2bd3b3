package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/glowcart/storefront-search/internal/domain"
	"github.com/glowcart/storefront-search/pkg/httputil"
	"github.com/glowcart/storefront-search/pkg/logger"
)

// Suggester produces autocomplete suggestions.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, category *string, limit int) ([]domain.Suggestion, error)
}

// SuggestionHandler handles the autocomplete endpoint.
type SuggestionHandler struct {
	suggester Suggester
	logger    *slog.Logger
}

// NewSuggestionHandler creates a new suggestion HTTP handler.
func NewSuggestionHandler(suggester Suggester, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggester: suggester, logger: logger}
}

type suggestionResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
	Query       string              `json:"query"`
	Count       int                 `json:"count"`
	Error       string              `json:"error,omitempty"`
}

// Suggest handles GET /api/v1/search/suggestions?q=&category=&limit=
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httputil.WriteJSON(w, http.StatusOK, suggestionResponse{Suggestions: []domain.Suggestion{}})
		return
	}

	limit, err := httputil.QueryInt(r, "limit", domain.DefaultSuggestionLimit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, suggestionResponse{
			Suggestions: []domain.Suggestion{},
			Query:       q,
			Error:       errorMessage(err),
		})
		return
	}

	suggestions, err := h.suggester.Suggest(r.Context(), q, httputil.QueryString(r, "category"), limit)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).ErrorContext(r.Context(), "suggestions failed",
			slog.String("error", err.Error()),
			slog.String("query", q),
		)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, suggestionResponse{
			Suggestions: []domain.Suggestion{},
			Query:       q,
			Error:       unavailableMessage,
		})
		return
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}

	httputil.WriteJSON(w, http.StatusOK, suggestionResponse{
		Suggestions: suggestions,
		Query:       q,
		Count:       len(suggestions),
	})
}
