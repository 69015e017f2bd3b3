package elasticsearch

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront-search/internal/domain"
	"github.com/glowcart/storefront-search/internal/query"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func mustBuild(t *testing.T, params domain.SearchParams) *domain.QuerySpec {
	t.Helper()
	spec, err := query.Build(params)
	require.NoError(t, err)
	return spec
}

// roundTrip renders the body as JSON and back so assertions see what is
// sent over the wire.
func roundTrip(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func boolClause(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	q, ok := body["query"].(map[string]interface{})
	require.True(t, ok)
	b, ok := q["bool"].(map[string]interface{})
	require.True(t, ok)
	return b
}

func TestBuildSearchQuery_MatchAll(t *testing.T) {
	body := roundTrip(t, buildSearchQuery(mustBuild(t, domain.SearchParams{})))

	b := boolClause(t, body)
	must := b["must"].([]interface{})
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "match_all")
	assert.NotContains(t, b, "filter")
	assert.Equal(t, float64(0), body["from"])
	assert.Equal(t, float64(20), body["size"])
	assert.Equal(t, true, body["track_total_hits"])
}

func TestBuildSearchQuery_WeightedFuzzyMatch(t *testing.T) {
	body := roundTrip(t, buildSearchQuery(mustBuild(t, domain.SearchParams{Query: "lipstik"})))

	must := boolClause(t, body)["must"].([]interface{})
	mm := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})

	assert.Equal(t, "lipstik", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.Equal(t, []interface{}{
		"name^3", "brand^2", "description", "category", "tags", "ingredients",
	}, mm["fields"])
}

func TestBuildSearchQuery_FiltersAreNonScoring(t *testing.T) {
	spec := mustBuild(t, domain.SearchParams{
		Query:       "serum",
		Category:    strPtr("Skincare"),
		Subcategory: strPtr("Serums"),
		MinPrice:    floatPtr(100),
		MaxPrice:    floatPtr(1000),
		InStockOnly: true,
		MinRating:   floatPtr(4),
	})
	b := boolClause(t, roundTrip(t, buildSearchQuery(spec)))

	assert.Len(t, b["must"], 1, "only the text match scores")
	filters := b["filter"].([]interface{})
	require.Len(t, filters, 5)

	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"category.keyword": "Skincare"}}, filters[0])
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"subcategory": "Serums"}}, filters[1])
	assert.Equal(t, map[string]interface{}{"range": map[string]interface{}{
		"price": map[string]interface{}{"gte": float64(100), "lte": float64(1000)},
	}}, filters[2])
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"inStock": true}}, filters[3])
	assert.Equal(t, map[string]interface{}{"range": map[string]interface{}{
		"rating": map[string]interface{}{"gte": float64(4)},
	}}, filters[4])
}

func TestBuildSearchQuery_OpenPriceRange(t *testing.T) {
	b := boolClause(t, roundTrip(t, buildSearchQuery(mustBuild(t, domain.SearchParams{MinPrice: floatPtr(5)}))))
	filters := b["filter"].([]interface{})
	require.Len(t, filters, 1)
	assert.Equal(t, map[string]interface{}{"range": map[string]interface{}{
		"price": map[string]interface{}{"gte": float64(5)},
	}}, filters[0])
}

func TestBuildSearchQuery_Pagination(t *testing.T) {
	body := roundTrip(t, buildSearchQuery(mustBuild(t, domain.SearchParams{Page: 4, Limit: 15})))
	assert.Equal(t, float64(45), body["from"])
	assert.Equal(t, float64(15), body["size"])
}

func TestBuildSort(t *testing.T) {
	tests := []struct {
		mode  string
		field string
		order string
	}{
		{domain.SortRelevance, "_score", "desc"},
		{"", "_score", "desc"},
		{domain.SortPriceAsc, "price", "asc"},
		{domain.SortPriceDesc, "price", "desc"},
		{domain.SortNewest, "createdAt", "desc"},
		{domain.SortRating, "rating", "desc"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			sort := buildSort(tt.mode)
			require.Len(t, sort, 2)
			assert.Equal(t, map[string]interface{}{tt.field: tt.order}, sort[0])
			assert.Equal(t, map[string]interface{}{"id": "asc"}, sort[1])
		})
	}
}

func TestBuildSuggestQuery(t *testing.T) {
	body := roundTrip(t, buildSuggestQuery("hyd", nil, 5))
	assert.Equal(t, false, body["_source"])

	s := body["suggest"].(map[string]interface{})[suggestName].(map[string]interface{})
	assert.Equal(t, "hyd", s["prefix"])
	completion := s["completion"].(map[string]interface{})
	assert.Equal(t, "suggest", completion["field"])
	assert.Equal(t, float64(5), completion["size"])
	assert.Equal(t, true, completion["skip_duplicates"])
	assert.NotContains(t, completion, "contexts")

	body = roundTrip(t, buildSuggestQuery("hyd", strPtr("Skincare"), 5))
	completion = body["suggest"].(map[string]interface{})[suggestName].(map[string]interface{})["completion"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"category": []interface{}{"Skincare"}}, completion["contexts"])
}

func TestNewESDocument_CompletionInput(t *testing.T) {
	d := domain.SearchDocument{
		ID:        "p1",
		Name:      "Hydrating Face Serum",
		Brand:     "GlowLab",
		Category:  "Skincare",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(newESDocument(d))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "p1", out["id"])
	assert.Equal(t, "Hydrating Face Serum", out["name"])
	assert.Equal(t, map[string]interface{}{
		"input":    []interface{}{"Hydrating Face Serum", "GlowLab"},
		"contexts": map[string]interface{}{"category": []interface{}{"Skincare"}},
	}, out["suggest"])

	d.Brand = ""
	d.Category = ""
	doc := newESDocument(d)
	assert.Equal(t, []string{"Hydrating Face Serum"}, doc.Suggest.Input)
	assert.Nil(t, doc.Suggest.Contexts)
}

func TestBulkResult(t *testing.T) {
	raw := `{"errors":true,"items":[
		{"index":{"_id":"p1","status":201}},
		{"index":{"_id":"p2","status":200}},
		{"index":{"_id":"p3","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [price]"}}}
	]}`
	var resp esBulkResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	result := bulkResult(&resp)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "p3", result.Failed[0].ID)
	assert.Equal(t, "mapper_parsing_exception: failed to parse field [price]", result.Failed[0].Error)
}

func TestEncodeBulk_NDJSON(t *testing.T) {
	body, err := encodeBulk("products", []domain.SearchDocument{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"products","_id":"a"}}`, lines[0])
	assert.Contains(t, lines[1], `"name":"A"`)
	assert.JSONEq(t, `{"index":{"_index":"products","_id":"b"}}`, lines[2])
}
