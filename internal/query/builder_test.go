package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront-search/internal/domain"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestFuzziness(t *testing.T) {
	tests := []struct {
		term string
		want int
	}{
		{"a", 0},
		{"spf", 1},
		{"ab", 0},
		{"serm", 1},
		{"serum", 1},
		{"lipstik", 2},
		{"krém", 1},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, Fuzziness(tt.term))
		})
	}
}

func TestBuild_Defaults(t *testing.T) {
	spec, err := Build(domain.SearchParams{})
	require.NoError(t, err)

	assert.Nil(t, spec.Match)
	assert.True(t, spec.Filters.Empty())
	assert.Equal(t, domain.SortRelevance, spec.Sort)
	assert.Equal(t, 0, spec.From)
	assert.Equal(t, domain.DefaultPageSize, spec.Size)
}

func TestBuild_TextMatch(t *testing.T) {
	spec, err := Build(domain.SearchParams{Query: "  Hydrating SERUM  "})
	require.NoError(t, err)
	require.NotNil(t, spec.Match)

	assert.Equal(t, "Hydrating SERUM", spec.Match.Text)
	assert.Equal(t, []domain.FuzzyTerm{
		{Term: "hydrating", Fuzziness: 2},
		{Term: "serum", Fuzziness: 1},
	}, spec.Match.Terms)

	weights := map[string]float64{}
	for _, f := range spec.Match.Fields {
		weights[f.Field] = f.Boost
	}
	assert.Equal(t, 3.0, weights[domain.FieldName])
	assert.Equal(t, 2.0, weights[domain.FieldBrand])
	assert.Equal(t, 1.0, weights[domain.FieldDescription])
	assert.Equal(t, 1.0, weights[domain.FieldCategory])
	assert.Equal(t, 1.0, weights[domain.FieldTags])
	assert.Equal(t, 1.0, weights[domain.FieldIngredients])
}

func TestBuild_BlankQueryIsMatchAll(t *testing.T) {
	spec, err := Build(domain.SearchParams{Query: "   ", Category: strPtr("Skincare")})
	require.NoError(t, err)
	assert.Nil(t, spec.Match)
	require.NotNil(t, spec.Filters.Category)
	assert.Equal(t, "Skincare", *spec.Filters.Category)
}

func TestBuild_Filters(t *testing.T) {
	spec, err := Build(domain.SearchParams{
		Category:    strPtr(" Makeup "),
		Subcategory: strPtr(""),
		MinPrice:    floatPtr(100),
		MaxPrice:    floatPtr(1000),
		InStockOnly: true,
		MinRating:   floatPtr(4),
	})
	require.NoError(t, err)

	assert.Equal(t, "Makeup", *spec.Filters.Category)
	assert.Nil(t, spec.Filters.Subcategory)
	assert.Equal(t, 100.0, *spec.Filters.MinPrice)
	assert.Equal(t, 1000.0, *spec.Filters.MaxPrice)
	assert.True(t, spec.Filters.InStockOnly)
	assert.Equal(t, 4.0, *spec.Filters.MinRating)
}

func TestBuild_Pagination(t *testing.T) {
	spec, err := Build(domain.SearchParams{Page: 3, Limit: 25})
	require.NoError(t, err)
	assert.Equal(t, 3, spec.Page)
	assert.Equal(t, 50, spec.From)
	assert.Equal(t, 25, spec.Size)
}

func TestBuild_HugePageCapsOffset(t *testing.T) {
	spec, err := Build(domain.SearchParams{Page: 100000000000000000, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxOffset, spec.From)
	assert.Equal(t, 100000000000000000, spec.Page)

	res := Paginate(&domain.RankedResults{Total: 1}, spec)
	assert.Equal(t, 100000000000000000, res.Page)
	assert.Empty(t, res.Products)
	assert.Equal(t, 1, res.TotalPages)
}

func TestBuild_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		params domain.SearchParams
	}{
		{"negative page", domain.SearchParams{Page: -1}},
		{"limit too large", domain.SearchParams{Limit: domain.MaxPageSize + 1}},
		{"negative limit", domain.SearchParams{Limit: -5}},
		{"unknown sort", domain.SearchParams{Sort: "popularity"}},
		{"negative min price", domain.SearchParams{MinPrice: floatPtr(-1)}},
		{"negative max price", domain.SearchParams{MaxPrice: floatPtr(-1)}},
		{"min above max", domain.SearchParams{MinPrice: floatPtr(50), MaxPrice: floatPtr(10)}},
		{"rating above five", domain.SearchParams{MinRating: floatPtr(5.5)}},
		{"negative rating", domain.SearchParams{MinRating: floatPtr(-0.1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestBuild_AllSortModes(t *testing.T) {
	for _, sort := range domain.ValidSortOptions() {
		spec, err := Build(domain.SearchParams{Sort: sort})
		require.NoError(t, err, sort)
		assert.Equal(t, sort, spec.Sort)
	}
}

func TestPaginate(t *testing.T) {
	spec := &domain.QuerySpec{From: 20, Size: 10}
	res := Paginate(&domain.RankedResults{Total: 41, TookMs: 3}, spec)

	assert.Equal(t, 3, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 41, res.Total)
	assert.Equal(t, 5, res.TotalPages)
	assert.NotNil(t, res.Products)
	assert.Empty(t, res.Products)
	assert.Equal(t, int64(3), res.TookMs)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(1, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 0, TotalPages(5, 0))
}
