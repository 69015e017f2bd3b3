package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog product record as stored in the relational catalog.
// Monetary values and the rating stay decimals here; conversion to index
// primitives happens in the transform package.
type Product struct {
	ID            string
	Name          string
	Description   string
	Brand         string
	SKU           *string
	Category      string
	Subcategory   string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Rating        decimal.Decimal
	ReviewCount   int
	Stock         int
	Image         *string
	Images        []string
	Tags          []string
	Ingredients   *string
	IsFeatured    bool
	IsNewArrival  bool
	IsFlashSale   bool
	IsFavourite   bool
	IsRecommended bool
	IsForYou      bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Indexable reports whether the product belongs in the search index.
// It mirrors the SQL active predicate used by the postgres store.
func (p *Product) Indexable() bool {
	return p.IsActive
}

// Page is one keyset page of active products.
type Page struct {
	Products []Product
	// NextCursor is the cursor for the following page, empty when this page
	// is the last one.
	NextCursor string
}

// Store is the read-only view of the catalog used by the search engine.
// All three methods apply the same active predicate.
type Store interface {
	// ListActiveProducts returns up to limit active products with an ID
	// strictly greater than cursor, ordered by ID. An empty cursor starts
	// from the beginning.
	ListActiveProducts(ctx context.Context, cursor string, limit int) (*Page, error)

	// GetProduct returns the product with the given ID or an error wrapping
	// errors.ErrNotFound.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// CountActiveProducts returns the number of active products.
	CountActiveProducts(ctx context.Context) (int, error)
}
