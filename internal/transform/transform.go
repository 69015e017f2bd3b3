// Package transform converts catalog product records into search documents.
package transform

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/glowcart/storefront-search/internal/catalog"
	"github.com/glowcart/storefront-search/internal/domain"
)

const maxRating = 5

var hundred = decimal.NewFromInt(100)

// ToSearchDocument maps a catalog product onto the index document shape.
// It never fails: absent optional values become empty strings, empty lists,
// zero or false, and out-of-range numbers are clamped.
func ToSearchDocument(p *catalog.Product) domain.SearchDocument {
	stock := p.Stock
	if stock < 0 {
		stock = 0
	}
	reviewCount := p.ReviewCount
	if reviewCount < 0 {
		reviewCount = 0
	}

	images := nonNil(p.Images)
	image := deref(p.Image)
	if image == "" && len(images) > 0 {
		image = images[0]
	}

	doc := domain.SearchDocument{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Brand:         p.Brand,
		Category:      p.Category,
		Subcategory:   p.Subcategory,
		Price:         p.Price.InexactFloat64(),
		Discount:      discount(p.Price, p.OriginalPrice),
		Stock:         stock,
		InStock:       stock > 0,
		Rating:        clampRating(p.Rating),
		ReviewCount:   reviewCount,
		Image:         image,
		Images:        images,
		SKU:           deref(p.SKU),
		Tags:          cleanTags(p.Tags),
		Ingredients:   deref(p.Ingredients),
		IsFeatured:    p.IsFeatured,
		IsNewArrival:  p.IsNewArrival,
		IsFlashSale:   p.IsFlashSale,
		IsFavourite:   p.IsFavourite,
		IsRecommended: p.IsRecommended,
		IsForYou:      p.IsForYou,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}

	if p.OriginalPrice.Valid {
		orig := p.OriginalPrice.Decimal.InexactFloat64()
		doc.OriginalPrice = &orig
	}

	return doc
}

// Discount recomputes the discount of an indexed document from its prices,
// rounding the same way ToSearchDocument does.
func Discount(price float64, originalPrice *float64) int {
	original := decimal.NullDecimal{}
	if originalPrice != nil {
		original = decimal.NewNullDecimal(decimal.NewFromFloat(*originalPrice))
	}
	return discount(decimal.NewFromFloat(price), original)
}

// discount is the rounded percentage saved against the original price, or
// zero unless originalPrice > price > 0.
func discount(price decimal.Decimal, original decimal.NullDecimal) int {
	if !original.Valid || !price.IsPositive() || !original.Decimal.GreaterThan(price) {
		return 0
	}
	pct := original.Decimal.Sub(price).Div(original.Decimal).Mul(hundred).Round(0)
	return int(pct.IntPart())
}

func clampRating(r decimal.Decimal) float64 {
	v := r.InexactFloat64()
	switch {
	case v < 0:
		return 0
	case v > maxRating:
		return maxRating
	default:
		return v
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
