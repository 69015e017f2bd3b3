package domain

import "math"

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortRating    = "rating"
)

// Pagination limits for search and listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortRating}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// SearchParams holds the caller-supplied parameters of a search or filtered
// listing request. Nil pointers mean "no constraint".
type SearchParams struct {
	Query       string   `json:"query"`
	Category    *string  `json:"category,omitempty"`
	Subcategory *string  `json:"subcategory,omitempty"`
	MinPrice    *float64 `json:"minPrice,omitempty"`
	MaxPrice    *float64 `json:"maxPrice,omitempty"`
	InStockOnly bool     `json:"inStockOnly"`
	MinRating   *float64 `json:"minRating,omitempty"`
	Sort        string   `json:"sort"`
	Page        int      `json:"page"`
	Limit       int      `json:"limit"`
}

// FieldBoost is a searchable field and its relative weight.
type FieldBoost struct {
	Field string
	Boost float64
}

// TextMatch is the scored part of a query: the free text, the weighted
// fields it runs against, and the per-term edit distance tolerance.
type TextMatch struct {
	Text   string
	Fields []FieldBoost
	// Terms holds the lower-cased query terms with the edit distance each
	// one tolerates.
	Terms []FuzzyTerm
}

// FuzzyTerm is a single query term and its allowed edit distance.
type FuzzyTerm struct {
	Term      string
	Fuzziness int
}

// Filters are non-scoring constraints applied to every query.
type Filters struct {
	Category    *string
	Subcategory *string
	MinPrice    *float64
	MaxPrice    *float64
	InStockOnly bool
	MinRating   *float64
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f.Category == nil && f.Subcategory == nil && f.MinPrice == nil &&
		f.MaxPrice == nil && !f.InStockOnly && f.MinRating == nil
}

// QuerySpec is the engine-neutral search specification produced by the
// query builder. A nil Match means match-all. Page is the requested page;
// From is capped at MaxOffset, so it need not equal (Page-1)*Size.
type QuerySpec struct {
	Match   *TextMatch
	Filters Filters
	Sort    string
	Page    int
	From    int
	Size    int
}

// MaxOffset caps QuerySpec.From. No store holds that many documents, so a
// capped offset always yields an empty page.
const MaxOffset = math.MaxInt32

// RankedResults is what an index store returns for a QuerySpec.
type RankedResults struct {
	Hits   []ProductHit
	Total  int
	TookMs int64
}

// SearchResult holds the paginated search response.
type SearchResult struct {
	Products   []ProductHit `json:"products"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
	TookMs     int64        `json:"tookMs"`
}
