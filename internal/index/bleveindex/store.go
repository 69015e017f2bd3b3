// Package bleveindex implements the search index store on an embedded bleve
// index. It backs local development, the one-shot indexer and the engine
// tests; production uses the elasticsearch package.
package bleveindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/glowcart/storefront-search/internal/domain"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

// Store is an index.Store backed by bleve. With an empty path the index
// lives in memory and disappears on DeleteIndex or Close.
type Store struct {
	name    string
	path    string
	mapping *mapping.IndexMappingImpl
	logger  *slog.Logger

	mu     sync.RWMutex
	idx    bleve.Index
	closed bool
}

// New creates a store. When path points at an existing index it is opened,
// otherwise the index is absent until CreateIndex is called.
func New(name, path string, logger *slog.Logger) (*Store, error) {
	m, err := newIndexMapping()
	if err != nil {
		return nil, err
	}

	s := &Store{name: name, path: path, mapping: m, logger: logger}

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			idx, err := bleve.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open bleve index at %s: %w", path, err)
			}
			s.idx = idx
		}
	}

	return s, nil
}

// Close releases the underlying index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.idx == nil {
		return nil
	}
	err := s.idx.Close()
	s.idx = nil
	return err
}

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return apperrors.Connectivity(errors.New("bleve index closed"))
	}
	return nil
}

// IndexExists reports whether the index has been created.
func (s *Store) IndexExists(ctx context.Context) (bool, error) {
	if err := s.Ping(ctx); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx != nil, nil
}

// CreateIndex creates the index with the product mapping.
func (s *Store) CreateIndex(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.Connectivity(errors.New("bleve index closed"))
	}
	if s.idx != nil {
		return apperrors.AlreadyExists("index", s.name)
	}

	var (
		idx bleve.Index
		err error
	)
	if s.path == "" {
		idx, err = bleve.NewMemOnly(s.mapping)
	} else {
		idx, err = bleve.New(s.path, s.mapping)
	}
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathExists) {
			return apperrors.AlreadyExists("index", s.name)
		}
		return fmt.Errorf("create index %s: %w", s.name, err)
	}

	s.idx = idx
	s.logger.Info("search index created", slog.String("index", s.name))
	return nil
}

// DeleteIndex drops the index and its on-disk data.
func (s *Store) DeleteIndex(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx == nil {
		return nil
	}
	if err := s.idx.Close(); err != nil {
		return fmt.Errorf("close index %s: %w", s.name, err)
	}
	s.idx = nil

	if s.path != "" {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index %s: %w", s.name, err)
		}
	}

	s.logger.Info("search index deleted", slog.String("index", s.name))
	return nil
}

// Put inserts or replaces one document.
func (s *Store) Put(ctx context.Context, doc domain.SearchDocument) error {
	idx, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	data, err := indexedDocument(doc)
	if err != nil {
		return err
	}
	if err := idx.Index(doc.ID, data); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return nil
}

// BulkPut writes documents in a single batch. A document that cannot be
// mapped is reported as a failed item and the rest are still written.
func (s *Store) BulkPut(ctx context.Context, docs []domain.SearchDocument) (*domain.BulkResult, error) {
	result := &domain.BulkResult{}
	if len(docs) == 0 {
		return result, nil
	}

	idx, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	batch := idx.NewBatch()
	for _, doc := range docs {
		data, err := indexedDocument(doc)
		if err == nil {
			err = batch.Index(doc.ID, data)
		}
		if err != nil {
			result.Failed = append(result.Failed, domain.BulkFailure{ID: doc.ID, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}

	if batch.Size() == 0 {
		return result, nil
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("bulk index %d documents: %w", batch.Size(), err)
	}
	return result, nil
}

// Delete removes one document, or returns ErrNotFound when it is absent.
func (s *Store) Delete(ctx context.Context, id string) error {
	idx, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{id}), 1, 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("lookup document %s: %w", id, err)
	}
	if res.Total == 0 {
		return apperrors.NotFound("document", id)
	}

	if err := idx.Delete(id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Count returns the number of documents in the index.
func (s *Store) Count(ctx context.Context) (int, error) {
	idx, release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return int(n), nil
}

// Search runs the query spec. Filters narrow the candidate set in a first
// pass, so the text score of a hit does not depend on them.
func (s *Store) Search(ctx context.Context, spec *domain.QuerySpec) (*domain.RankedResults, error) {
	idx, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var took int64

	filter := filterQuery(spec.Filters)
	scored := textQuery(spec.Match)

	var q query.Query
	switch {
	case scored == nil && filter == nil:
		q = bleve.NewMatchAllQuery()
	case scored == nil:
		q = filter
	case filter == nil:
		q = scored
	default:
		ids, ms, err := s.matchingIDs(ctx, idx, filter)
		if err != nil {
			return nil, err
		}
		took += ms
		if len(ids) == 0 {
			return &domain.RankedResults{Hits: []domain.ProductHit{}, TookMs: took}, nil
		}
		q = bleve.NewConjunctionQuery(scored, bleve.NewDocIDQuery(ids))
	}

	// An offset past the last document only needs the total.
	from, size := spec.From, spec.Size
	docs, err := idx.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if from < 0 || uint64(from) >= docs {
		from, size = 0, 0
	}

	req := bleve.NewSearchRequestOptions(q, size, from, false)
	req.Fields = []string{fieldSource}
	req.SortBy(sortOrder(spec.Sort))

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w", s.name, err)
	}
	took += res.Took.Milliseconds()

	hits := make([]domain.ProductHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		doc, err := decodeSource(h.ID, h.Fields)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.ProductHit{SearchDocument: doc, Score: h.Score})
	}

	return &domain.RankedResults{Hits: hits, Total: int(res.Total), TookMs: took}, nil
}

// Suggest returns names and brands starting with prefix.
func (s *Store) Suggest(ctx context.Context, prefix string, category *string, limit int) ([]domain.CompletionHit, error) {
	idx, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	lowered := strings.ToLower(strings.TrimSpace(prefix))
	if lowered == "" || limit <= 0 {
		return []domain.CompletionHit{}, nil
	}

	pq := bleve.NewPrefixQuery(lowered)
	pq.SetField(fieldSuggest)

	var q query.Query = pq
	if category != nil {
		q = bleve.NewConjunctionQuery(pq, termQuery(fieldCategoryExact, *category))
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{fieldSource}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggest from index %s: %w", s.name, err)
	}

	hits := make([]domain.CompletionHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		doc, err := decodeSource(h.ID, h.Fields)
		if err != nil {
			return nil, err
		}
		text := doc.Name
		if !strings.HasPrefix(strings.ToLower(doc.Name), lowered) {
			text = doc.Brand
		}
		hits = append(hits, domain.CompletionHit{Text: text, Score: h.Score})
	}
	return hits, nil
}

// acquire returns the open index under a read lock. The caller must call
// release when done.
func (s *Store) acquire(ctx context.Context) (bleve.Index, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, nil, apperrors.Connectivity(errors.New("bleve index closed"))
	}
	if s.idx == nil {
		s.mu.RUnlock()
		return nil, nil, apperrors.IndexUnavailable(s.name)
	}
	return s.idx, s.mu.RUnlock, nil
}

// matchingIDs returns the IDs of every document matching the filter.
func (s *Store) matchingIDs(ctx context.Context, idx bleve.Index, filter query.Query) ([]string, int64, error) {
	total, err := idx.DocCount()
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	req := bleve.NewSearchRequestOptions(filter, int(total), 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("filter index %s: %w", s.name, err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, res.Took.Milliseconds(), nil
}

func decodeSource(id string, fields map[string]interface{}) (domain.SearchDocument, error) {
	var doc domain.SearchDocument
	raw, ok := fields[fieldSource].(string)
	if !ok {
		return doc, fmt.Errorf("document %s has no stored source", id)
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return doc, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, nil
}
