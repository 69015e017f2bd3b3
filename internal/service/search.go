// Package service runs storefront searches against the index.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/glowcart/storefront-search/internal/domain"
	"github.com/glowcart/storefront-search/internal/index"
	"github.com/glowcart/storefront-search/internal/query"
)

const tracerName = "github.com/glowcart/storefront-search/internal/service"

// historyTimeout bounds recording one search in the history store.
const historyTimeout = 500 * time.Millisecond

// HistoryRecorder stores executed searches.
type HistoryRecorder interface {
	Record(ctx context.Context, term string, resultCount int) error
}

// SearchService executes search and listing requests.
type SearchService struct {
	indexes index.Provider
	history HistoryRecorder
	logger  *slog.Logger
}

// NewSearchService creates a search service. history may be nil.
func NewSearchService(indexes index.Provider, history HistoryRecorder, logger *slog.Logger) *SearchService {
	return &SearchService{indexes: indexes, history: history, logger: logger}
}

// Search validates params, runs the query and returns one page of results.
// Searches with free text are recorded in the history store; a recording
// failure is logged and does not fail the search.
func (s *SearchService) Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "service.search")
	defer span.End()

	spec, err := query.Build(params)
	if err != nil {
		return nil, err
	}

	store, err := s.indexes.Get(ctx)
	if err != nil {
		return nil, err
	}

	ranked, err := store.Search(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	result := query.Paginate(ranked, spec)
	span.SetAttributes(
		attribute.Int("search.total", result.Total),
		attribute.Int("search.page", result.Page),
		attribute.Bool("search.text", spec.Match != nil),
	)

	if term := strings.TrimSpace(params.Query); term != "" {
		s.record(ctx, term, result.Total)
	}

	return result, nil
}

func (s *SearchService) record(ctx context.Context, term string, total int) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	if err := s.history.Record(ctx, term, total); err != nil {
		s.logger.WarnContext(ctx, "record search history",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
	}
}
