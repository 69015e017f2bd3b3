// Package elasticsearch implements the search index store on Elasticsearch 8.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/glowcart/storefront-search/internal/domain"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

// Config holds the cluster connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	// Refresh is passed as the refresh parameter of writes so that a write
	// is visible to the next search. Empty disables it.
	Refresh string
}

// Store is an Elasticsearch-backed index.Store.
type Store struct {
	client    *elasticsearch.Client
	indexName string
	refresh   string
	logger    *slog.Logger
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string                `json:"_id"`
			Score  *float64              `json:"_score"`
			Source domain.SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esSuggestResponse decodes the completion suggester section of a search response.
type esSuggestResponse struct {
	Suggest map[string][]struct {
		Options []struct {
			Text  string  `json:"text"`
			Score float64 `json:"_score"`
		} `json:"options"`
	} `json:"suggest"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

type esCountResponse struct {
	Count int `json:"count"`
}

// New creates a store for the configured cluster. It does not contact the
// cluster; the lazy index handle pings and creates the index on first use.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	indexName := cfg.Index
	if indexName == "" {
		indexName = DefaultIndexName
	}

	// Failed requests surface to the caller; the engine never retries.
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Store{
		client:    client,
		indexName: indexName,
		refresh:   cfg.Refresh,
		logger:    logger,
	}, nil
}

// IndexName returns the name of the managed index.
func (s *Store) IndexName() string {
	return s.indexName
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return transportError(ctx, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return apperrors.Connectivity(fmt.Errorf("ping: unexpected status %s", res.Status()))
	}
	return nil
}

// IndexExists reports whether the products index exists.
func (s *Store) IndexExists(ctx context.Context) (bool, error) {
	res, err := s.client.Indices.Exists(
		[]string{s.indexName},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, transportError(ctx, err)
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("elasticsearch index exists: unexpected status %s", res.Status())
	}
}

// CreateIndex creates the products index with its mapping.
func (s *Store) CreateIndex(ctx context.Context) error {
	res, err := s.client.Indices.Create(
		s.indexName,
		s.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return transportError(ctx, err)
	}
	defer closeBody(res)

	if res.IsError() {
		errResp := decodeError(res)
		if errResp.Error.Type == "resource_already_exists_exception" {
			return apperrors.AlreadyExists("index", s.indexName)
		}
		return s.responseError("create index", res, errResp)
	}

	s.logger.Info("elasticsearch index created", slog.String("index", s.indexName))
	return nil
}

// DeleteIndex removes the entire index. A 404 response is treated as
// success (index already absent).
func (s *Store) DeleteIndex(ctx context.Context) error {
	res, err := s.client.Indices.Delete(
		[]string{s.indexName},
		s.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return transportError(ctx, err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return s.responseError("delete index", res, decodeError(res))
	}

	s.logger.Info("elasticsearch index deleted", slog.String("index", s.indexName))
	return nil
}

// Put adds or replaces a single document.
func (s *Store) Put(ctx context.Context, doc domain.SearchDocument) error {
	data, err := json.Marshal(newESDocument(doc))
	if err != nil {
		return fmt.Errorf("elasticsearch put: marshal document %s: %w", doc.ID, err)
	}

	opts := []func(*esapi.IndexRequest){
		s.client.Index.WithDocumentID(doc.ID),
		s.client.Index.WithContext(ctx),
	}
	if s.refresh != "" {
		opts = append(opts, s.client.Index.WithRefresh(s.refresh))
	}

	res, err := s.client.Index(s.indexName, bytes.NewReader(data), opts...)
	if err != nil {
		return transportError(ctx, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return s.responseError("put", res, decodeError(res))
	}

	s.logger.Debug("indexed document", slog.String("id", doc.ID))
	return nil
}

// BulkPut writes documents with the bulk NDJSON API and reports the
// outcome of every item.
func (s *Store) BulkPut(ctx context.Context, docs []domain.SearchDocument) (*domain.BulkResult, error) {
	if len(docs) == 0 {
		return &domain.BulkResult{}, nil
	}

	body, err := encodeBulk(s.indexName, docs)
	if err != nil {
		return nil, err
	}

	opts := []func(*esapi.BulkRequest){
		s.client.Bulk.WithIndex(s.indexName),
		s.client.Bulk.WithContext(ctx),
	}
	if s.refresh != "" {
		opts = append(opts, s.client.Bulk.WithRefresh(s.refresh))
	}

	res, err := s.client.Bulk(bytes.NewReader(body), opts...)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, s.responseError("bulk", res, decodeError(res))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	result := bulkResult(&bulkResp)
	s.logger.Info("bulk indexed documents",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// Delete removes one document and returns ErrNotFound when it is absent.
func (s *Store) Delete(ctx context.Context, id string) error {
	opts := []func(*esapi.DeleteRequest){
		s.client.Delete.WithContext(ctx),
	}
	if s.refresh != "" {
		opts = append(opts, s.client.Delete.WithRefresh(s.refresh))
	}

	res, err := s.client.Delete(s.indexName, id, opts...)
	if err != nil {
		return transportError(ctx, err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		raw, _ := io.ReadAll(res.Body)
		var errResp esErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Type == "index_not_found_exception" {
			return apperrors.IndexUnavailable(s.indexName)
		}
		return apperrors.NotFound("document", id)
	}
	if res.IsError() {
		return s.responseError("delete", res, decodeError(res))
	}

	s.logger.Debug("deleted document", slog.String("id", id))
	return nil
}

// Count returns the number of documents in the index.
func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.client.Count(
		s.client.Count.WithIndex(s.indexName),
		s.client.Count.WithContext(ctx),
	)
	if err != nil {
		return 0, transportError(ctx, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return 0, s.responseError("count", res, decodeError(res))
	}

	var countResp esCountResponse
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("elasticsearch count: decode response: %w", err)
	}
	return countResp.Count, nil
}

// Search executes a query spec. Pages past the result window return no
// hits but still report the true total.
func (s *Store) Search(ctx context.Context, spec *domain.QuerySpec) (*domain.RankedResults, error) {
	body := buildSearchQuery(spec)
	beyondWindow := spec.From < 0 || spec.From > maxResultWindow-spec.Size
	if beyondWindow {
		body["from"] = 0
		body["size"] = 0
	}

	var esResp esSearchResponse
	if err := s.search(ctx, "search", body, &esResp); err != nil {
		return nil, err
	}

	hits := make([]domain.ProductHit, 0, len(esResp.Hits.Hits))
	if !beyondWindow {
		for _, h := range esResp.Hits.Hits {
			hit := domain.ProductHit{SearchDocument: h.Source}
			if h.Score != nil {
				hit.Score = *h.Score
			}
			hits = append(hits, hit)
		}
	}

	return &domain.RankedResults{
		Hits:   hits,
		Total:  esResp.Hits.Total.Value,
		TookMs: esResp.Took,
	}, nil
}

// Suggest returns completions from the suggest field.
func (s *Store) Suggest(ctx context.Context, prefix string, category *string, limit int) ([]domain.CompletionHit, error) {
	if strings.TrimSpace(prefix) == "" || limit <= 0 {
		return []domain.CompletionHit{}, nil
	}

	var esResp esSuggestResponse
	if err := s.search(ctx, "suggest", buildSuggestQuery(prefix, category, limit), &esResp); err != nil {
		return nil, err
	}

	hits := make([]domain.CompletionHit, 0, limit)
	for _, entry := range esResp.Suggest[suggestName] {
		for _, opt := range entry.Options {
			hits = append(hits, domain.CompletionHit{Text: opt.Text, Score: opt.Score})
		}
	}
	return hits, nil
}

func (s *Store) search(ctx context.Context, op string, body map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("elasticsearch %s: marshal query: %w", op, err)
	}

	res, err := s.client.Search(
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(bytes.NewReader(data)),
		s.client.Search.WithContext(ctx),
	)
	if err != nil {
		return transportError(ctx, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return s.responseError(op, res, decodeError(res))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("elasticsearch %s: decode response: %w", op, err)
	}
	return nil
}

// responseError classifies an error response: a missing index is
// ErrIndexUnavailable, a gateway or unavailability status is
// ErrConnectivity, anything else is returned with the server's reason.
func (s *Store) responseError(op string, res *esapi.Response, errResp esErrorResponse) error {
	switch {
	case errResp.Error.Type == "index_not_found_exception":
		return apperrors.IndexUnavailable(s.indexName)
	case res.StatusCode == http.StatusServiceUnavailable,
		res.StatusCode == http.StatusBadGateway,
		res.StatusCode == http.StatusGatewayTimeout:
		return apperrors.Connectivity(fmt.Errorf("%s: unexpected status %s", op, res.Status()))
	case errResp.Error.Type != "":
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	default:
		return fmt.Errorf("elasticsearch %s: unexpected status %s", op, res.Status())
	}
}

func decodeError(res *esapi.Response) esErrorResponse {
	var errResp esErrorResponse
	_ = json.NewDecoder(res.Body).Decode(&errResp)
	return errResp
}

func encodeBulk(indexName string, docs []domain.SearchDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for i := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": indexName,
				"_id":    docs[i].ID,
			},
		}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(newESDocument(docs[i])); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode document %s: %w", docs[i].ID, err)
		}
	}
	return buf.Bytes(), nil
}

// bulkResult turns the per-item bulk response into a BulkResult.
func bulkResult(resp *esBulkResponse) *domain.BulkResult {
	result := &domain.BulkResult{}
	for _, item := range resp.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				result.Succeeded++
				continue
			}
			reason := op.Error.Reason
			if op.Error.Type != "" {
				reason = op.Error.Type + ": " + reason
			}
			result.Failed = append(result.Failed, domain.BulkFailure{ID: op.ID, Error: reason})
		}
	}
	return result
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}

// transportError reports a request that never got a response. A cancelled
// or expired context is returned as is.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("elasticsearch: %w", ctxErr)
	}
	return apperrors.Connectivity(err)
}
