package bleveindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/glowcart/storefront-search/internal/domain"
)

// textQuery expands every term into a fuzzy match on each weighted field.
// A document matches when any term matches any field.
func textQuery(m *domain.TextMatch) query.Query {
	if m == nil || len(m.Terms) == 0 {
		return nil
	}

	clauses := make([]query.Query, 0, len(m.Terms)*len(m.Fields))
	for _, t := range m.Terms {
		for _, f := range m.Fields {
			mq := bleve.NewMatchQuery(t.Term)
			mq.SetField(f.Field)
			mq.SetBoost(f.Boost)
			mq.SetFuzziness(t.Fuzziness)
			clauses = append(clauses, mq)
		}
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// filterQuery returns nil when no filter is set.
func filterQuery(f domain.Filters) query.Query {
	if f.Empty() {
		return nil
	}

	var clauses []query.Query
	if f.Category != nil {
		clauses = append(clauses, termQuery(fieldCategoryExact, *f.Category))
	}
	if f.Subcategory != nil {
		clauses = append(clauses, termQuery(domain.FieldSubcategory, *f.Subcategory))
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(f.MinPrice, f.MaxPrice, &inclusive, &inclusive)
		rq.SetField(domain.FieldPrice)
		clauses = append(clauses, rq)
	}
	if f.InStockOnly {
		bq := bleve.NewBoolFieldQuery(true)
		bq.SetField(domain.FieldInStock)
		clauses = append(clauses, bq)
	}
	if f.MinRating != nil {
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(f.MinRating, nil, &inclusive, nil)
		rq.SetField(domain.FieldRating)
		clauses = append(clauses, rq)
	}

	return bleve.NewConjunctionQuery(clauses...)
}

func termQuery(field, value string) query.Query {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	return tq
}

// sortOrder returns the bleve sort keys for a sort mode. The document ID
// breaks ties so paging is stable.
func sortOrder(mode string) []string {
	switch mode {
	case domain.SortPriceAsc:
		return []string{domain.FieldPrice, "_id"}
	case domain.SortPriceDesc:
		return []string{"-" + domain.FieldPrice, "_id"}
	case domain.SortNewest:
		return []string{"-" + domain.FieldCreatedAt, "_id"}
	case domain.SortRating:
		return []string{"-" + domain.FieldRating, "_id"}
	default:
		return []string{"-_score", "_id"}
	}
}
