// Package suggest merges autocomplete suggestions from the index and the
// search history into one ranked list.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/glowcart/storefront-search/internal/domain"
	"github.com/glowcart/storefront-search/internal/index"
	"github.com/glowcart/storefront-search/internal/query"
)

// HistorySource returns recent search terms containing a prefix.
type HistorySource interface {
	Recent(ctx context.Context, prefix string, limit int) ([]domain.HistoryTerm, error)
}

// fallbackSeeds are shown for an empty prefix.
var fallbackSeeds = []string{
	"Skincare",
	"Makeup",
	"Haircare",
	"Fragrance",
	"Body Care",
	"Sun Care",
	"Serum",
	"Lipstick",
}

// productFields are the fields of the fuzzy product/brand source.
var productFields = []domain.FieldBoost{
	{Field: domain.FieldName, Boost: 3},
	{Field: domain.FieldBrand, Boost: 2},
}

// Engine produces autocomplete suggestions.
type Engine struct {
	indexes index.Provider
	history HistorySource
	logger  *slog.Logger
}

// NewEngine creates a suggestion engine. history may be nil.
func NewEngine(indexes index.Provider, history HistorySource, logger *slog.Logger) *Engine {
	return &Engine{indexes: indexes, history: history, logger: logger}
}

// Suggest returns at most limit suggestions for prefix, without duplicate
// text, ordered by score then weight. A source that fails is logged and
// skipped; an error is returned only when every source failed.
func (e *Engine) Suggest(ctx context.Context, prefix string, category *string, limit int) ([]domain.Suggestion, error) {
	limit = clampLimit(limit)
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fallback(limit), nil
	}

	var (
		completions []domain.Suggestion
		products    []domain.Suggestion
		recent      []domain.Suggestion
		errs        = make([]error, 3)
	)

	store, storeErr := e.indexes.Get(ctx)

	var g errgroup.Group
	g.Go(func() error {
		if storeErr != nil {
			errs[0] = storeErr
			return nil
		}
		completions, errs[0] = e.fromCompletion(ctx, store, prefix, category, limit)
		return nil
	})
	g.Go(func() error {
		if storeErr != nil {
			errs[1] = storeErr
			return nil
		}
		products, errs[1] = e.fromProducts(ctx, store, prefix, category, limit)
		return nil
	})
	sources := 2
	if e.history != nil {
		sources++
		g.Go(func() error {
			recent, errs[2] = e.fromHistory(ctx, prefix, limit)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	names := []string{"completion", "product", "history"}
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		e.logger.WarnContext(ctx, "suggestion source failed",
			slog.String("source", names[i]),
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
	}
	if failed == sources {
		return nil, fmt.Errorf("all suggestion sources failed: %w", errors.Join(errs...))
	}

	return Merge(limit, completions, products, recent), nil
}

// Merge concatenates the groups in priority order, drops entries whose text
// was already seen, sorts by score then weight (both descending, stable) and
// truncates to limit.
func Merge(limit int, groups ...[]domain.Suggestion) []domain.Suggestion {
	seen := make(map[string]struct{})
	merged := make([]domain.Suggestion, 0)
	for _, group := range groups {
		for _, s := range group {
			if s.Text == "" {
				continue
			}
			if _, dup := seen[s.Text]; dup {
				continue
			}
			seen[s.Text] = struct{}{}
			merged = append(merged, s)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Weight > merged[j].Weight
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (e *Engine) fromCompletion(ctx context.Context, store index.Store, prefix string, category *string, limit int) ([]domain.Suggestion, error) {
	hits, err := store.Suggest(ctx, prefix, category, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Suggestion{Text: h.Text, Type: domain.SuggestionCompletion, Score: h.Score})
	}
	return out, nil
}

// fromProducts runs a fuzzy name/brand query. A hit whose brand contains
// the prefix suggests the brand, any other hit suggests the product name.
func (e *Engine) fromProducts(ctx context.Context, store index.Store, prefix string, category *string, limit int) ([]domain.Suggestion, error) {
	spec := &domain.QuerySpec{
		Match:   query.NewTextMatch(prefix, productFields),
		Filters: domain.Filters{Category: category},
		Sort:    domain.SortRelevance,
		Size:    limit,
	}
	res, err := store.Search(ctx, spec)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(prefix)
	out := make([]domain.Suggestion, 0, len(res.Hits))
	for _, h := range res.Hits {
		if h.Brand != "" && strings.Contains(strings.ToLower(h.Brand), lowered) {
			out = append(out, domain.Suggestion{Text: h.Brand, Type: domain.SuggestionBrand, Score: h.Score})
			continue
		}
		out = append(out, domain.Suggestion{Text: h.Name, Type: domain.SuggestionProduct, Score: h.Score})
	}
	return out, nil
}

func (e *Engine) fromHistory(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	terms, err := e.history.Recent(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, 0, len(terms))
	for _, t := range terms {
		out = append(out, domain.Suggestion{Text: t.Term, Type: domain.SuggestionHistory, Weight: t.ResultCount})
	}
	return out, nil
}

func fallback(limit int) []domain.Suggestion {
	n := min(limit, len(fallbackSeeds))
	out := make([]domain.Suggestion, 0, n)
	for _, seed := range fallbackSeeds[:n] {
		out = append(out, domain.Suggestion{Text: seed, Type: domain.SuggestionCategory})
	}
	return out
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return domain.DefaultSuggestionLimit
	case limit > domain.MaxSuggestionLimit:
		return domain.MaxSuggestionLimit
	default:
		return limit
	}
}
