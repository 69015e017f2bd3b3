package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront-search/internal/domain"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

// fakeCluster answers every request with the handler's status and body and
// records the last request body.
type fakeCluster struct {
	status   int
	body     string
	lastPath string
	lastBody []byte
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lastPath = r.Method + " " + r.URL.Path
	f.lastBody, _ = io.ReadAll(r.Body)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func newFakeStore(t *testing.T, status int, body string) (*Store, *fakeCluster) {
	t.Helper()
	fake := &fakeCluster{status: status, body: body}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(Config{Addresses: []string{srv.URL}, Index: "products_test"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, fake
}

const indexNotFound = `{"error":{"type":"index_not_found_exception","reason":"no such index [products_test]"},"status":404}`

func TestStore_DefaultIndexName(t *testing.T) {
	s, err := New(Config{Addresses: []string{"http://localhost:9200"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, DefaultIndexName, s.IndexName())
}

func TestStore_UnreachableCluster(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New(Config{Addresses: []string{url}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	err = s.Ping(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConnectivity)

	_, err = s.Count(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConnectivity)
}

func TestStore_CancelledContextIsNotConnectivity(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusOK, `{"count":1}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Count(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrConnectivity)
}

func TestStore_IndexExists(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusOK, ``)
	exists, err := s.IndexExists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)

	s, _ = newFakeStore(t, http.StatusNotFound, ``)
	exists, err = s.IndexExists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_CreateIndex(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusOK, `{"acknowledged":true,"index":"products_test"}`)
	require.NoError(t, s.CreateIndex(context.Background()))
	assert.Equal(t, "PUT /products_test", fake.lastPath)

	var mapping map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.lastBody, &mapping))
	props := mapping["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	assert.Equal(t, "completion", props["suggest"].(map[string]interface{})["type"])
	assert.Equal(t, "boolean", props["inStock"].(map[string]interface{})["type"])
}

func TestStore_CreateIndexAlreadyExists(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusBadRequest,
		`{"error":{"type":"resource_already_exists_exception","reason":"index [products_test] already exists"},"status":400}`)
	err := s.CreateIndex(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestStore_DeleteIndexAbsentIsFine(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusNotFound, indexNotFound)
	assert.NoError(t, s.DeleteIndex(context.Background()))
}

func TestStore_DeleteMissingDocument(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusNotFound,
		`{"_index":"products_test","_id":"p1","result":"not_found"}`)
	err := s.Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "DELETE /products_test/_doc/p1", fake.lastPath)
}

func TestStore_DeleteWithoutIndex(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusNotFound, indexNotFound)
	err := s.Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
}

func TestStore_SearchWithoutIndex(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusNotFound, indexNotFound)
	_, err := s.Search(context.Background(), &domain.QuerySpec{Size: 10})
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
}

func TestStore_ClusterUnavailableStatus(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusServiceUnavailable, `{}`)
	_, err := s.Count(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConnectivity)
}

func TestStore_Search(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusOK, `{
		"took": 4,
		"hits": {
			"total": {"value": 42},
			"hits": [
				{"_id":"p1","_score":3.5,"_source":{"id":"p1","name":"Hydrating Face Serum","price":1299,"inStock":true}},
				{"_id":"p2","_score":null,"_source":{"id":"p2","name":"Serum Mist","price":20}}
			]
		}
	}`)

	res, err := s.Search(context.Background(), &domain.QuerySpec{From: 0, Size: 2, Sort: domain.SortRelevance})
	require.NoError(t, err)
	assert.Equal(t, 42, res.Total)
	assert.Equal(t, int64(4), res.TookMs)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "Hydrating Face Serum", res.Hits[0].Name)
	assert.Equal(t, 3.5, res.Hits[0].Score)
	assert.Zero(t, res.Hits[1].Score)
	assert.Equal(t, "POST /products_test/_search", fake.lastPath)
}

func TestStore_SearchBeyondResultWindow(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusOK, `{"took":1,"hits":{"total":{"value":12000},"hits":[]}}`)

	res, err := s.Search(context.Background(), &domain.QuerySpec{From: 10000, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, 12000, res.Total)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.lastBody, &sent))
	assert.Equal(t, float64(0), sent["size"])
	assert.Equal(t, float64(0), sent["from"])
}

func TestStore_SearchCappedOffsetSendsNoHitsRequest(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusOK, `{"took":1,"hits":{"total":{"value":3},"hits":[]}}`)

	for _, from := range []int{domain.MaxOffset, -100} {
		res, err := s.Search(context.Background(), &domain.QuerySpec{From: from, Size: 100})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Empty(t, res.Hits)

		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal(fake.lastBody, &sent))
		assert.Equal(t, float64(0), sent["from"], "from=%d", from)
		assert.Equal(t, float64(0), sent["size"], "from=%d", from)
	}
}

func TestStore_BulkPutPartialFailure(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusOK, `{"errors":true,"items":[
		{"index":{"_id":"p1","status":201}},
		{"index":{"_id":"p2","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad price"}}}
	]}`)

	res, err := s.BulkPut(context.Background(), []domain.SearchDocument{{ID: "p1"}, {ID: "p2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "p2", res.Failed[0].ID)
	assert.Equal(t, "POST /products_test/_bulk", fake.lastPath)
}

func TestStore_BulkPutEmptyDoesNotCallCluster(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusInternalServerError, `{}`)
	res, err := s.BulkPut(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Empty(t, fake.lastPath)
}

func TestStore_Count(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusOK, `{"count":17}`)
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	assert.Contains(t, fake.lastPath, "/products_test/_count")
}

func TestStore_Suggest(t *testing.T) {
	s, _ := newFakeStore(t, http.StatusOK, `{
		"suggest": {
			"product-suggest": [
				{"text":"hyd","options":[
					{"text":"Hydrating Face Serum","_score":2},
					{"text":"Hydra Lip Balm","_score":1}
				]}
			]
		}
	}`)

	hits, err := s.Suggest(context.Background(), "hyd", nil, 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.CompletionHit{
		{Text: "Hydrating Face Serum", Score: 2},
		{Text: "Hydra Lip Balm", Score: 1},
	}, hits)
}

func TestStore_SuggestBlankPrefixSkipsCluster(t *testing.T) {
	s, fake := newFakeStore(t, http.StatusInternalServerError, `{}`)
	hits, err := s.Suggest(context.Background(), " ", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, fake.lastPath)
}
