// Package index defines the contract of the search index store and the
// lazily-initialized process-wide handle to it.
package index

import (
	"context"

	"github.com/glowcart/storefront-search/internal/domain"
)

// Store is a single named search index holding SearchDocuments keyed by ID.
// Implementations map backend failures onto the shared sentinels:
// errors.ErrConnectivity when the backend cannot be reached,
// errors.ErrIndexUnavailable when the index is missing, errors.ErrNotFound
// when a document is absent and errors.ErrAlreadyExists on CreateIndex.
type Store interface {
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// IndexExists reports whether the index has been created.
	IndexExists(ctx context.Context) (bool, error)
	// CreateIndex creates the index with its mapping.
	CreateIndex(ctx context.Context) error
	// DeleteIndex removes the index. Deleting an absent index is not an error.
	DeleteIndex(ctx context.Context) error

	// Put inserts or replaces one document.
	Put(ctx context.Context, doc domain.SearchDocument) error
	// BulkPut writes many documents. Per-item failures are reported in the
	// result; the error is reserved for failures of the whole request.
	BulkPut(ctx context.Context, docs []domain.SearchDocument) (*domain.BulkResult, error)
	// Delete removes one document.
	Delete(ctx context.Context, id string) error
	// Count returns the number of documents in the index.
	Count(ctx context.Context) (int, error)

	// Search runs a query and returns ranked hits with the total match count.
	Search(ctx context.Context, spec *domain.QuerySpec) (*domain.RankedResults, error)
	// Suggest returns completions for a prefix, optionally restricted to a
	// category.
	Suggest(ctx context.Context, prefix string, category *string, limit int) ([]domain.CompletionHit, error)
}

// Provider hands out the index store, connecting on first use.
type Provider interface {
	Get(ctx context.Context) (Store, error)
}

// Static returns a Provider that always yields store.
func Static(store Store) Provider {
	return staticProvider{store: store}
}

type staticProvider struct {
	store Store
}

func (p staticProvider) Get(context.Context) (Store, error) {
	return p.store, nil
}
