// Package indexsync keeps the search index consistent with the catalog.
// It is the only component that performs bulk or destructive index
// operations.
package indexsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/glowcart/storefront-search/internal/catalog"
	"github.com/glowcart/storefront-search/internal/domain"
	"github.com/glowcart/storefront-search/internal/index"
	"github.com/glowcart/storefront-search/internal/transform"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

const tracerName = "github.com/glowcart/storefront-search/internal/indexsync"

// DefaultBatchSize is the number of catalog products read and written per
// bulk request during index-all.
const DefaultBatchSize = 500

// Request is one admin synchronization request.
type Request struct {
	Action    string                     `json:"action" validate:"required"`
	ProductID string                     `json:"productId,omitempty"`
	Updates   map[string]json.RawMessage `json:"updates,omitempty"`
}

// Controller runs synchronization actions against the index.
type Controller struct {
	catalog   catalog.Store
	indexes   index.Provider
	batchSize int
	logger    *slog.Logger

	reindex sync.Mutex
	phase   atomic.Value
}

// NewController creates a controller. A non-positive batchSize uses
// DefaultBatchSize.
func NewController(cat catalog.Store, indexes index.Provider, batchSize int, logger *slog.Logger) *Controller {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	c := &Controller{catalog: cat, indexes: indexes, batchSize: batchSize, logger: logger}
	c.phase.Store(domain.PhaseIdle)
	return c
}

// Phase returns the current or last reindex-all phase.
func (c *Controller) Phase() domain.ReindexPhase {
	return c.phase.Load().(domain.ReindexPhase)
}

// Execute dispatches a request to its action. A partial bulk failure
// returns the result together with an error wrapping ErrPartialBulk.
func (c *Controller) Execute(ctx context.Context, req Request) (*domain.SyncResult, error) {
	switch req.Action {
	case domain.ActionCreateIndex:
		return c.CreateIndex(ctx)
	case domain.ActionIndexAll:
		return c.IndexAll(ctx)
	case domain.ActionReindexAll:
		return c.ReindexAll(ctx)
	case domain.ActionIndexProduct:
		return c.IndexProduct(ctx, req.ProductID)
	case domain.ActionUpdateProduct:
		return c.UpdateProduct(ctx, req.ProductID, req.Updates)
	case domain.ActionDeleteProduct:
		return c.DeleteProduct(ctx, req.ProductID)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown action %q, expected one of %s",
			req.Action, strings.Join(domain.ValidActions(), ", ")))
	}
}

// CreateIndex creates the index. An existing index is reported as success.
func (c *Controller) CreateIndex(ctx context.Context) (*domain.SyncResult, error) {
	return c.observe(ctx, domain.ActionCreateIndex, func(ctx context.Context) (*domain.SyncResult, error) {
		store, err := c.indexes.Get(ctx)
		if err != nil {
			return nil, err
		}
		return createIndex(ctx, store)
	})
}

// IndexAll writes every active catalog product to the index, page by page.
func (c *Controller) IndexAll(ctx context.Context) (*domain.SyncResult, error) {
	return c.observe(ctx, domain.ActionIndexAll, func(ctx context.Context) (*domain.SyncResult, error) {
		store, err := c.indexes.Get(ctx)
		if err != nil {
			return nil, err
		}
		exists, err := store.IndexExists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("index-all requires an existing index, run %s first: %w",
				domain.ActionCreateIndex, apperrors.ErrIndexUnavailable)
		}
		return c.indexAll(ctx, store)
	})
}

// ReindexAll drops and recreates the index, then indexes the whole catalog.
// Only one reindex runs at a time; a concurrent call fails with
// ErrAlreadyInProgress.
func (c *Controller) ReindexAll(ctx context.Context) (*domain.SyncResult, error) {
	return c.observe(ctx, domain.ActionReindexAll, func(ctx context.Context) (*domain.SyncResult, error) {
		if !c.reindex.TryLock() {
			return nil, apperrors.AlreadyInProgress(domain.ActionReindexAll)
		}
		defer c.reindex.Unlock()

		result, err := c.reindexAll(ctx)
		if err != nil && !errors.Is(err, apperrors.ErrPartialBulk) {
			c.setPhase(domain.PhaseFailed)
			return result, err
		}
		c.setPhase(domain.PhaseDone)
		return result, err
	})
}

func (c *Controller) reindexAll(ctx context.Context) (*domain.SyncResult, error) {
	store, err := c.indexes.Get(ctx)
	if err != nil {
		return nil, err
	}

	c.setPhase(domain.PhaseDeletingIndex)
	if err := store.DeleteIndex(ctx); err != nil {
		return nil, fmt.Errorf("delete index: %w", err)
	}

	c.setPhase(domain.PhaseCreatingIndex)
	if err := store.CreateIndex(ctx); err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
		return nil, fmt.Errorf("create index: %w", err)
	}

	c.setPhase(domain.PhaseBulkIndexing)
	return c.indexAll(ctx, store)
}

// IndexProduct writes the current catalog state of one active product.
func (c *Controller) IndexProduct(ctx context.Context, id string) (*domain.SyncResult, error) {
	return c.observe(ctx, domain.ActionIndexProduct, func(ctx context.Context) (*domain.SyncResult, error) {
		doc, err := c.loadDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := c.put(ctx, doc); err != nil {
			return nil, err
		}
		return &domain.SyncResult{Success: true, Message: fmt.Sprintf("product %s indexed", id), Indexed: 1}, nil
	})
}

// UpdateProduct re-reads the product from the catalog, overlays updates on
// the transformed document and writes it.
func (c *Controller) UpdateProduct(ctx context.Context, id string, updates map[string]json.RawMessage) (*domain.SyncResult, error) {
	return c.observe(ctx, domain.ActionUpdateProduct, func(ctx context.Context) (*domain.SyncResult, error) {
		if len(updates) == 0 {
			return nil, apperrors.InvalidInput("updates must contain at least one field")
		}
		if err := checkUpdateFields(updates); err != nil {
			return nil, err
		}
		doc, err := c.loadDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		doc, err = applyUpdates(doc, updates)
		if err != nil {
			return nil, err
		}
		if err := c.put(ctx, doc); err != nil {
			return nil, err
		}
		return &domain.SyncResult{Success: true, Message: fmt.Sprintf("product %s updated", id), Indexed: 1}, nil
	})
}

// DeleteProduct removes a document from the index. An absent document is
// reported as success.
func (c *Controller) DeleteProduct(ctx context.Context, id string) (*domain.SyncResult, error) {
	return c.observe(ctx, domain.ActionDeleteProduct, func(ctx context.Context) (*domain.SyncResult, error) {
		if strings.TrimSpace(id) == "" {
			return nil, apperrors.InvalidInput("productId is required")
		}
		store, err := c.indexes.Get(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.Delete(ctx, id); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return &domain.SyncResult{Success: true, Message: "document already absent"}, nil
			}
			return nil, err
		}
		return &domain.SyncResult{Success: true, Message: fmt.Sprintf("product %s removed from index", id)}, nil
	})
}

// Status compares the index with the catalog. An unreachable index is
// reported as disconnected rather than as an error.
func (c *Controller) Status(ctx context.Context) (*domain.SyncStatus, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "indexsync.status")
	defer span.End()

	status := &domain.SyncStatus{ReindexPhase: c.Phase()}

	productCount, err := c.catalog.CountActiveProducts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("count catalog products: %w", err)
	}
	status.ProductsInCatalog = productCount
	ProductsInCatalog.Set(float64(productCount))

	store, err := c.indexes.Get(ctx)
	if err == nil {
		err = store.Ping(ctx)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "search index unreachable", slog.String("error", err.Error()))
		return status, nil
	}
	status.Connected = true

	exists, err := store.IndexExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check index: %w", err)
	}
	status.IndexExists = exists

	if exists {
		count, err := store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count index documents: %w", err)
		}
		status.DocumentsIndexed = count
		DocumentsIndexed.Set(float64(count))
	}

	status.Synced = status.Connected && status.IndexExists && status.DocumentsIndexed == status.ProductsInCatalog
	span.SetAttributes(
		attribute.Int("sync.documents_indexed", status.DocumentsIndexed),
		attribute.Int("sync.products_in_catalog", status.ProductsInCatalog),
		attribute.Bool("sync.synced", status.Synced),
	)
	return status, nil
}

func createIndex(ctx context.Context, store index.Store) (*domain.SyncResult, error) {
	exists, err := store.IndexExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return &domain.SyncResult{Success: true, Message: "index already exists"}, nil
	}
	if err := store.CreateIndex(ctx); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return &domain.SyncResult{Success: true, Message: "index already exists"}, nil
		}
		return nil, err
	}
	return &domain.SyncResult{Success: true, Message: "index created"}, nil
}

// indexAll streams the catalog in keyset pages with one bulk write per page.
// Pages already written stay indexed when a later page fails or the context
// is cancelled.
func (c *Controller) indexAll(ctx context.Context, store index.Store) (*domain.SyncResult, error) {
	total := &domain.BulkResult{}
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return c.bulkSummary(total, "index-all cancelled"), fmt.Errorf("index-all interrupted: %w", err)
		}

		page, err := c.catalog.ListActiveProducts(ctx, cursor, c.batchSize)
		if err != nil {
			return c.bulkSummary(total, "index-all aborted"), fmt.Errorf("read catalog page: %w", err)
		}

		if len(page.Products) > 0 {
			docs := make([]domain.SearchDocument, 0, len(page.Products))
			for i := range page.Products {
				docs = append(docs, transform.ToSearchDocument(&page.Products[i]))
			}

			res, err := store.BulkPut(ctx, docs)
			if err != nil {
				return c.bulkSummary(total, "index-all aborted"), fmt.Errorf("bulk write: %w", err)
			}
			for _, f := range res.Failed {
				c.logger.ErrorContext(ctx, "document failed to index",
					slog.String("product_id", f.ID),
					slog.String("reason", f.Error),
				)
			}
			DocumentsWritten.WithLabelValues("succeeded").Add(float64(res.Succeeded))
			DocumentsWritten.WithLabelValues("failed").Add(float64(len(res.Failed)))
			total.Merge(res)
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	result := c.bulkSummary(total, "")
	if !total.OK() {
		return result, fmt.Errorf("%d of %d documents failed: %w",
			len(total.Failed), total.Succeeded+len(total.Failed), apperrors.ErrPartialBulk)
	}
	return result, nil
}

func (c *Controller) bulkSummary(total *domain.BulkResult, prefix string) *domain.SyncResult {
	msg := fmt.Sprintf("indexed %d products", total.Succeeded)
	if n := len(total.Failed); n > 0 {
		msg = fmt.Sprintf("%s, %d failed", msg, n)
	}
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	return &domain.SyncResult{
		Success: prefix == "" && total.OK(),
		Message: msg,
		Indexed: total.Succeeded,
		Failed:  total.Failed,
	}
}

// loadDocument returns the transformed document of an active product.
func (c *Controller) loadDocument(ctx context.Context, id string) (domain.SearchDocument, error) {
	if strings.TrimSpace(id) == "" {
		return domain.SearchDocument{}, apperrors.InvalidInput("productId is required")
	}
	p, err := c.catalog.GetProduct(ctx, id)
	if err != nil {
		return domain.SearchDocument{}, err
	}
	if !p.Indexable() {
		return domain.SearchDocument{}, &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("no active product with id %s", id),
			Status:  apperrors.HTTPStatus(apperrors.ErrNotFound),
			Err:     apperrors.ErrNotFound,
		}
	}
	return transform.ToSearchDocument(p), nil
}

func (c *Controller) put(ctx context.Context, doc domain.SearchDocument) error {
	store, err := c.indexes.Get(ctx)
	if err != nil {
		return err
	}
	return store.Put(ctx, doc)
}

func (c *Controller) setPhase(p domain.ReindexPhase) {
	c.phase.Store(p)
	c.logger.Info("reindex phase", slog.String("phase", string(p)))
}

// observe records a span, a duration and an outcome for one action.
func (c *Controller) observe(ctx context.Context, action string, fn func(context.Context) (*domain.SyncResult, error)) (*domain.SyncResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "indexsync."+action)
	defer span.End()
	span.SetAttributes(attribute.String("sync.action", action))

	start := time.Now()
	result, err := fn(ctx)
	ActionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case errors.Is(err, apperrors.ErrPartialBulk):
		outcome = "partial"
	case err != nil:
		outcome = "error"
	}
	ActionsTotal.WithLabelValues(action, outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.ErrorContext(ctx, "sync action failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return result, err
	}

	c.logger.InfoContext(ctx, "sync action completed",
		slog.String("action", action),
		slog.String("message", result.Message),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// checkUpdateFields rejects keys that are unknown or name derived fields.
func checkUpdateFields(updates map[string]json.RawMessage) error {
	var unknown []string
	for key := range updates {
		if _, ok := domain.UpdatableFields[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperrors.InvalidInput(fmt.Sprintf("unknown update fields: %s", strings.Join(unknown, ", ")))
	}
	return nil
}

// applyUpdates overlays the given document fields on doc and recomputes the
// derived fields. Values that break document invariants are rejected.
func applyUpdates(doc domain.SearchDocument, updates map[string]json.RawMessage) (domain.SearchDocument, error) {
	if err := checkUpdateFields(updates); err != nil {
		return doc, err
	}

	base, err := json.Marshal(doc)
	if err != nil {
		return doc, fmt.Errorf("encode document: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return doc, fmt.Errorf("decode document: %w", err)
	}
	for key, value := range updates {
		fields[key] = value
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return doc, fmt.Errorf("encode updated document: %w", err)
	}
	var updated domain.SearchDocument
	if err := json.Unmarshal(merged, &updated); err != nil {
		return doc, apperrors.InvalidInput(fmt.Sprintf("invalid update value: %v", err))
	}

	updated.ID = doc.ID
	updated.InStock = updated.Stock > 0
	updated.Discount = transform.Discount(updated.Price, updated.OriginalPrice)
	if updated.Images == nil {
		updated.Images = []string{}
	}
	if updated.Tags == nil {
		updated.Tags = []string{}
	}

	switch {
	case updated.Stock < 0:
		return doc, apperrors.InvalidInput("stock must not be negative")
	case updated.ReviewCount < 0:
		return doc, apperrors.InvalidInput("reviewCount must not be negative")
	case updated.Rating < 0 || updated.Rating > 5:
		return doc, apperrors.InvalidInput("rating must be between 0 and 5")
	case updated.Price < 0:
		return doc, apperrors.InvalidInput("price must not be negative")
	case updated.OriginalPrice != nil && *updated.OriginalPrice < 0:
		return doc, apperrors.InvalidInput("originalPrice must not be negative")
	}

	return updated, nil
}
