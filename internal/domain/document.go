package domain

import (
	"time"
)

// SearchDocument is the denormalized representation of one catalog product
// held in the search index. Its ID is the catalog product ID.
type SearchDocument struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Brand         string    `json:"brand"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	Discount      int       `json:"discount"`
	Stock         int       `json:"stock"`
	InStock       bool      `json:"inStock"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	Image         string    `json:"image"`
	Images        []string  `json:"images"`
	SKU           string    `json:"sku"`
	Tags          []string  `json:"tags"`
	Ingredients   string    `json:"ingredients"`
	IsFeatured    bool      `json:"isFeatured"`
	IsNewArrival  bool      `json:"isNewArrival"`
	IsFlashSale   bool      `json:"isFlashSale"`
	IsFavourite   bool      `json:"isFavourite"`
	IsRecommended bool      `json:"isRecommended"`
	IsForYou      bool      `json:"isForYou"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Document field names as they appear in the index.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldBrand       = "brand"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldPrice       = "price"
	FieldInStock     = "inStock"
	FieldRating      = "rating"
	FieldTags        = "tags"
	FieldIngredients = "ingredients"
	FieldCreatedAt   = "createdAt"
)

// ProductHit is a search document together with its relevance score.
type ProductHit struct {
	SearchDocument
	Score float64 `json:"score"`
}

// BulkFailure describes one document a bulk write could not store.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult reports the per-item outcome of a bulk write.
type BulkResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// OK reports whether every item of the bulk write succeeded.
func (r *BulkResult) OK() bool {
	return len(r.Failed) == 0
}

// Merge adds the outcome of another bulk write to r.
func (r *BulkResult) Merge(other *BulkResult) {
	if other == nil {
		return
	}
	r.Succeeded += other.Succeeded
	r.Failed = append(r.Failed, other.Failed...)
}

// CompletionHit is a single prefix completion returned by the index.
type CompletionHit struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// UpdatableFields are the document fields an update-product action may
// override. The ID and the derived inStock and discount fields are excluded.
var UpdatableFields = map[string]struct{}{
	"name": {}, "description": {}, "brand": {}, "category": {}, "subcategory": {},
	"price": {}, "originalPrice": {}, "stock": {}, "rating": {},
	"reviewCount": {}, "image": {}, "images": {}, "sku": {}, "tags": {},
	"ingredients": {}, "isFeatured": {}, "isNewArrival": {}, "isFlashSale": {},
	"isFavourite": {}, "isRecommended": {}, "isForYou": {}, "createdAt": {},
	"updatedAt": {},
}
