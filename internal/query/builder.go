// Package query turns storefront search parameters into an engine-neutral
// QuerySpec and shapes ranked results into paginated responses.
package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/glowcart/storefront-search/internal/domain"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

const maxRating = 5

// SearchFields are the scored text fields and their weights.
var SearchFields = []domain.FieldBoost{
	{Field: domain.FieldName, Boost: 3},
	{Field: domain.FieldBrand, Boost: 2},
	{Field: domain.FieldDescription, Boost: 1},
	{Field: domain.FieldCategory, Boost: 1},
	{Field: domain.FieldTags, Boost: 1},
	{Field: domain.FieldIngredients, Boost: 1},
}

// Fuzziness returns the edit distance a term tolerates: none up to two
// characters, one up to five, two beyond.
func Fuzziness(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// Build validates params and produces the query spec. Defaults: page 1,
// limit 20, relevance sort.
func Build(params domain.SearchParams) (*domain.QuerySpec, error) {
	if params.Page == 0 {
		params.Page = 1
	}
	if params.Limit == 0 {
		params.Limit = domain.DefaultPageSize
	}
	if params.Sort == "" {
		params.Sort = domain.SortRelevance
	}

	if err := validate(params); err != nil {
		return nil, err
	}

	return &domain.QuerySpec{
		Match: NewTextMatch(params.Query, SearchFields),
		Filters: domain.Filters{
			Category:    nonBlank(params.Category),
			Subcategory: nonBlank(params.Subcategory),
			MinPrice:    params.MinPrice,
			MaxPrice:    params.MaxPrice,
			InStockOnly: params.InStockOnly,
			MinRating:   params.MinRating,
		},
		Sort: params.Sort,
		Page: params.Page,
		From: offset(params.Page, params.Limit),
		Size: params.Limit,
	}, nil
}

// offset is (page-1)*limit, capped at domain.MaxOffset.
func offset(page, limit int) int {
	if page-1 > domain.MaxOffset/limit {
		return domain.MaxOffset
	}
	return (page - 1) * limit
}

// NewTextMatch splits text into lower-cased terms with their fuzziness. It
// returns nil for blank text, which means match-all.
func NewTextMatch(text string, fields []domain.FieldBoost) *domain.TextMatch {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	words := strings.Fields(strings.ToLower(text))
	terms := make([]domain.FuzzyTerm, 0, len(words))
	for _, w := range words {
		terms = append(terms, domain.FuzzyTerm{Term: w, Fuzziness: Fuzziness(w)})
	}
	return &domain.TextMatch{Text: text, Fields: fields, Terms: terms}
}

// Paginate shapes the store's ranked results into a page of the response.
func Paginate(results *domain.RankedResults, spec *domain.QuerySpec) *domain.SearchResult {
	hits := results.Hits
	if hits == nil {
		hits = []domain.ProductHit{}
	}

	page := spec.Page
	if page < 1 {
		page = 1
		if spec.Size > 0 {
			page = spec.From/spec.Size + 1
		}
	}

	return &domain.SearchResult{
		Products:   hits,
		Total:      results.Total,
		Page:       page,
		Limit:      spec.Size,
		TotalPages: TotalPages(results.Total, spec.Size),
		TookMs:     results.TookMs,
	}
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func validate(p domain.SearchParams) error {
	if p.Page < 1 {
		return apperrors.InvalidInput("page must be at least 1")
	}
	if p.Limit < 1 || p.Limit > domain.MaxPageSize {
		return apperrors.InvalidInput(fmt.Sprintf("limit must be between 1 and %d", domain.MaxPageSize))
	}
	if !domain.IsValidSort(p.Sort) {
		return apperrors.InvalidInput(fmt.Sprintf("sort must be one of %s", strings.Join(domain.ValidSortOptions(), ", ")))
	}
	if p.MinPrice != nil && *p.MinPrice < 0 {
		return apperrors.InvalidInput("min_price must not be negative")
	}
	if p.MaxPrice != nil && *p.MaxPrice < 0 {
		return apperrors.InvalidInput("max_price must not be negative")
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return apperrors.InvalidInput("min_price must not exceed max_price")
	}
	if p.MinRating != nil && (*p.MinRating < 0 || *p.MinRating > maxRating) {
		return apperrors.InvalidInput("min_rating must be between 0 and 5")
	}
	return nil
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
