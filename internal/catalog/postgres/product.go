package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/glowcart/storefront-search/internal/catalog"
	"github.com/glowcart/storefront-search/pkg/database"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

// activePredicate is the only definition of "indexable product". Listing for
// indexing and counting for sync status both use it.
const activePredicate = "p.is_active = TRUE"

// selectProduct resolves the category tree: a product attached to a child
// category reports the parent as category and the child as subcategory.
const selectProduct = `
	SELECT p.id::text, p.name, COALESCE(p.description, ''), COALESCE(p.brand, ''), p.sku,
	       COALESCE(parent.name, c.name, ''),
	       CASE WHEN parent.id IS NULL THEN '' ELSE c.name END,
	       p.price::text, p.original_price::text, COALESCE(p.rating, 0)::text,
	       p.review_count, p.stock, p.image, p.images, p.tags, p.ingredients,
	       p.is_featured, p.is_new_arrival, p.is_flash_sale, p.is_favourite,
	       p.is_recommended, p.is_for_you, p.is_active, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN categories parent ON parent.id = c.parent_id`

// ProductStore implements catalog.Store on the storefront PostgreSQL schema.
type ProductStore struct {
	pool database.DBTX
}

// NewProductStore creates a new PostgreSQL-backed catalog store.
func NewProductStore(pool database.DBTX) *ProductStore {
	return &ProductStore{pool: pool}
}

// ListActiveProducts returns one keyset page of active products ordered by ID.
func (s *ProductStore) ListActiveProducts(ctx context.Context, cursor string, limit int) (_ *catalog.Page, err error) {
	if limit <= 0 {
		return nil, apperrors.InvalidInput("limit must be positive")
	}

	// Comparing ids as text keeps the empty first-page cursor valid for
	// uuid and text id columns alike.
	query := selectProduct + `
	WHERE ` + activePredicate + ` AND p.id::text > $1
	ORDER BY p.id::text
	LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "ListActiveProducts", query)
	defer func() { end(err) }()

	// One extra row tells us whether another page follows.
	rows, err := s.pool.Query(ctx, query, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	page := &catalog.Page{Products: products}
	if len(products) > limit {
		page.Products = products[:limit]
		page.NextCursor = products[limit-1].ID
	}
	return page, nil
}

// GetProduct returns a product regardless of its active flag.
func (s *ProductStore) GetProduct(ctx context.Context, id string) (_ *catalog.Product, err error) {
	query := selectProduct + `
	WHERE p.id = $1`

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	p, err := scanProduct(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, err
	}
	return p, nil
}

// CountActiveProducts counts products matching the active predicate.
func (s *ProductStore) CountActiveProducts(ctx context.Context) (_ int, err error) {
	query := `SELECT count(*) FROM products p WHERE ` + activePredicate

	ctx, end := database.TraceQuery(ctx, "CountActiveProducts", query)
	defer func() { end(err) }()

	var count int
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active products: %w", err)
	}
	return count, nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var (
		p             catalog.Product
		price, rating string
		originalPrice *string
	)

	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Brand,
		&p.SKU,
		&p.Category,
		&p.Subcategory,
		&price,
		&originalPrice,
		&rating,
		&p.ReviewCount,
		&p.Stock,
		&p.Image,
		&p.Images,
		&p.Tags,
		&p.Ingredients,
		&p.IsFeatured,
		&p.IsNewArrival,
		&p.IsFlashSale,
		&p.IsFavourite,
		&p.IsRecommended,
		&p.IsForYou,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price of product %s: %w", p.ID, err)
	}
	if p.Rating, err = decimal.NewFromString(rating); err != nil {
		return nil, fmt.Errorf("parse rating of product %s: %w", p.ID, err)
	}
	if originalPrice != nil {
		d, err := decimal.NewFromString(*originalPrice)
		if err != nil {
			return nil, fmt.Errorf("parse original price of product %s: %w", p.ID, err)
		}
		p.OriginalPrice = decimal.NewNullDecimal(d)
	}

	return &p, nil
}
