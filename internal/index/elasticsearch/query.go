package elasticsearch

import (
	"fmt"
	"strings"

	"github.com/glowcart/storefront-search/internal/domain"
)

// esDocument is the indexed body: the search document plus the completion
// input derived from it.
type esDocument struct {
	domain.SearchDocument
	Suggest completionInput `json:"suggest"`
}

type completionInput struct {
	Input    []string            `json:"input"`
	Contexts map[string][]string `json:"contexts,omitempty"`
}

func newESDocument(d domain.SearchDocument) esDocument {
	input := []string{d.Name}
	if d.Brand != "" && !strings.EqualFold(d.Brand, d.Name) {
		input = append(input, d.Brand)
	}

	doc := esDocument{SearchDocument: d, Suggest: completionInput{Input: input}}
	if d.Category != "" {
		doc.Suggest.Contexts = map[string][]string{suggestContext: {d.Category}}
	}
	return doc
}

// buildSearchQuery translates a query spec into the search request body.
// The text match is the only scoring clause; filters go to bool.filter.
func buildSearchQuery(spec *domain.QuerySpec) map[string]interface{} {
	var must interface{}
	if spec.Match != nil {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     spec.Match.Text,
				"fields":    boostedFields(spec.Match.Fields),
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		}
	} else {
		must = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	boolQuery := map[string]interface{}{
		"must": []interface{}{must},
	}
	if filters := buildFilters(spec.Filters); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"from":             spec.From,
		"size":             spec.Size,
		"sort":             buildSort(spec.Sort),
		"track_total_hits": true,
	}
}

func boostedFields(fields []domain.FieldBoost) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Boost == 1 {
			out = append(out, f.Field)
			continue
		}
		out = append(out, fmt.Sprintf("%s^%g", f.Field, f.Boost))
	}
	return out
}

func buildFilters(f domain.Filters) []interface{} {
	var filters []interface{}

	if f.Category != nil {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{
				domain.FieldCategory + ".keyword": *f.Category,
			},
		})
	}

	if f.Subcategory != nil {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{
				domain.FieldSubcategory: *f.Subcategory,
			},
		})
	}

	if f.MinPrice != nil || f.MaxPrice != nil {
		priceRange := map[string]interface{}{}
		if f.MinPrice != nil {
			priceRange["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			priceRange["lte"] = *f.MaxPrice
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				domain.FieldPrice: priceRange,
			},
		})
	}

	if f.InStockOnly {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{
				domain.FieldInStock: true,
			},
		})
	}

	if f.MinRating != nil {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				domain.FieldRating: map[string]interface{}{"gte": *f.MinRating},
			},
		})
	}

	return filters
}

// buildSort returns the sort clause. The id tie-breaker keeps paging stable.
func buildSort(mode string) []interface{} {
	tieBreak := map[string]interface{}{domain.FieldID: "asc"}

	switch mode {
	case domain.SortPriceAsc:
		return []interface{}{map[string]interface{}{domain.FieldPrice: "asc"}, tieBreak}
	case domain.SortPriceDesc:
		return []interface{}{map[string]interface{}{domain.FieldPrice: "desc"}, tieBreak}
	case domain.SortNewest:
		return []interface{}{map[string]interface{}{domain.FieldCreatedAt: "desc"}, tieBreak}
	case domain.SortRating:
		return []interface{}{map[string]interface{}{domain.FieldRating: "desc"}, tieBreak}
	default:
		return []interface{}{map[string]interface{}{"_score": "desc"}, tieBreak}
	}
}

const suggestName = "product-suggest"

// buildSuggestQuery returns a completion suggester request for prefix.
func buildSuggestQuery(prefix string, category *string, limit int) map[string]interface{} {
	completion := map[string]interface{}{
		"field":           "suggest",
		"size":            limit,
		"skip_duplicates": true,
	}
	if category != nil {
		completion["contexts"] = map[string]interface{}{
			suggestContext: []string{*category},
		}
	}

	return map[string]interface{}{
		"_source": false,
		"suggest": map[string]interface{}{
			suggestName: map[string]interface{}{
				"prefix":     prefix,
				"completion": completion,
			},
		},
	}
}
