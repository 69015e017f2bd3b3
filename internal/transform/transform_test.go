package transform

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront-search/internal/catalog"
)

func strPtr(s string) *string { return &s }

func fullProduct() *catalog.Product {
	ist := time.FixedZone("IST", 3*60*60)
	return &catalog.Product{
		ID:            "p1",
		Name:          "Hydrating Serum",
		Description:   "Hyaluronic acid serum",
		Brand:         "GlowLab",
		SKU:           strPtr("GL-001"),
		Category:      "Skincare",
		Subcategory:   "Serums",
		Price:         decimal.RequireFromString("25.00"),
		OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString("30.00")),
		Rating:        decimal.RequireFromString("4.5"),
		ReviewCount:   12,
		Stock:         7,
		Image:         strPtr("https://cdn.example.com/p1.jpg"),
		Images:        []string{"https://cdn.example.com/p1.jpg", "https://cdn.example.com/p1-b.jpg"},
		Tags:          []string{"hydrating", "vegan"},
		Ingredients:   strPtr("water, hyaluronic acid"),
		IsNewArrival:  true,
		IsActive:      true,
		CreatedAt:     time.Date(2025, 1, 2, 15, 0, 0, 0, ist),
		UpdatedAt:     time.Date(2025, 1, 3, 15, 0, 0, 0, ist),
	}
}

func TestToSearchDocument_FullRecord(t *testing.T) {
	doc := ToSearchDocument(fullProduct())

	assert.Equal(t, "p1", doc.ID)
	assert.Equal(t, "Hydrating Serum", doc.Name)
	assert.Equal(t, "Skincare", doc.Category)
	assert.Equal(t, "Serums", doc.Subcategory)
	assert.Equal(t, 25.0, doc.Price)
	require.NotNil(t, doc.OriginalPrice)
	assert.Equal(t, 30.0, *doc.OriginalPrice)
	assert.Equal(t, 17, doc.Discount)
	assert.Equal(t, 7, doc.Stock)
	assert.True(t, doc.InStock)
	assert.Equal(t, 4.5, doc.Rating)
	assert.Equal(t, "GL-001", doc.SKU)
	assert.Equal(t, "water, hyaluronic acid", doc.Ingredients)
	assert.True(t, doc.IsNewArrival)
	assert.Equal(t, time.UTC, doc.CreatedAt.Location())
	assert.Equal(t, 12, doc.CreatedAt.Hour())
}

func TestToSearchDocument_MissingOptionalFields(t *testing.T) {
	doc := ToSearchDocument(&catalog.Product{
		ID:    "p2",
		Name:  "Plain Soap",
		Price: decimal.RequireFromString("3.10"),
	})

	assert.Equal(t, "", doc.Description)
	assert.Equal(t, "", doc.Brand)
	assert.Equal(t, "", doc.SKU)
	assert.Equal(t, "", doc.Image)
	assert.Equal(t, "", doc.Ingredients)
	assert.NotNil(t, doc.Images)
	assert.Empty(t, doc.Images)
	assert.NotNil(t, doc.Tags)
	assert.Empty(t, doc.Tags)
	assert.Nil(t, doc.OriginalPrice)
	assert.Zero(t, doc.Discount)
	assert.Zero(t, doc.Rating)
	assert.False(t, doc.InStock)
}

func TestToSearchDocument_StockInvariant(t *testing.T) {
	tests := []struct {
		name    string
		stock   int
		want    int
		inStock bool
	}{
		{"positive", 3, 3, true},
		{"zero", 0, 0, false},
		{"negative clamps", -4, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fullProduct()
			p.Stock = tt.stock
			doc := ToSearchDocument(p)
			assert.Equal(t, tt.want, doc.Stock)
			assert.Equal(t, tt.inStock, doc.InStock)
			assert.Equal(t, doc.Stock > 0, doc.InStock)
		})
	}
}

func TestToSearchDocument_Discount(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		original string
		want     int
	}{
		{"rounds half up", "19.99", "29.99", 33},
		{"no discount when equal", "10", "10", 0},
		{"no discount when original lower", "12", "10", 0},
		{"no discount for free product", "0", "10", 0},
		{"no original price", "10", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fullProduct()
			p.Price = decimal.RequireFromString(tt.price)
			p.OriginalPrice = decimal.NullDecimal{}
			if tt.original != "" {
				p.OriginalPrice = decimal.NewNullDecimal(decimal.RequireFromString(tt.original))
			}
			doc := ToSearchDocument(p)
			assert.Equal(t, tt.want, doc.Discount)
			assert.GreaterOrEqual(t, doc.Discount, 0)
			assert.LessOrEqual(t, doc.Discount, 100)
			assert.Equal(t, doc.Discount, Discount(doc.Price, doc.OriginalPrice), "recomputed from the document")
		})
	}
}

func TestToSearchDocument_RatingClamped(t *testing.T) {
	p := fullProduct()
	p.Rating = decimal.RequireFromString("7.2")
	assert.Equal(t, 5.0, ToSearchDocument(p).Rating)

	p.Rating = decimal.RequireFromString("-1")
	assert.Equal(t, 0.0, ToSearchDocument(p).Rating)
}

func TestToSearchDocument_ImageFallsBackToFirstImage(t *testing.T) {
	p := fullProduct()
	p.Image = nil
	doc := ToSearchDocument(p)
	assert.Equal(t, "https://cdn.example.com/p1.jpg", doc.Image)

	p.Image = strPtr("")
	p.Images = []string{"https://cdn.example.com/other.jpg"}
	assert.Equal(t, "https://cdn.example.com/other.jpg", ToSearchDocument(p).Image)
}

func TestToSearchDocument_TagsCleaned(t *testing.T) {
	p := fullProduct()
	p.Tags = []string{"  vegan ", "", "   ", "cruelty-free"}
	assert.Equal(t, []string{"vegan", "cruelty-free"}, ToSearchDocument(p).Tags)
}

func TestToSearchDocument_Idempotent(t *testing.T) {
	p := fullProduct()
	assert.Equal(t, ToSearchDocument(p), ToSearchDocument(p))
}
