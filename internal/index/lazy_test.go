package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

// stubStore overrides only the methods Lazy calls.
type stubStore struct {
	Store
	exists    bool
	createErr error
	created   atomic.Int32
}

func (s *stubStore) IndexExists(context.Context) (bool, error) { return s.exists, nil }

func (s *stubStore) CreateIndex(context.Context) error {
	s.created.Add(1)
	return s.createErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLazy_InitializesOnce(t *testing.T) {
	var calls atomic.Int32
	store := &stubStore{exists: true}
	lazy := NewLazy(func(context.Context) (Store, error) {
		calls.Add(1)
		return store, nil
	}, false, discardLogger())

	assert.False(t, lazy.Initialized())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := lazy.Get(context.Background())
			assert.NoError(t, err)
			assert.Same(t, store, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, lazy.Initialized())
}

func TestLazy_FailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	store := &stubStore{exists: true}
	lazy := NewLazy(func(context.Context) (Store, error) {
		if calls.Add(1) == 1 {
			return nil, apperrors.Connectivity(errors.New("dial tcp: connection refused"))
		}
		return store, nil
	}, false, discardLogger())

	_, err := lazy.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConnectivity)
	assert.False(t, lazy.Initialized())

	got, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, store, got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLazy_AutoCreateMissingIndex(t *testing.T) {
	store := &stubStore{exists: false}
	lazy := NewLazy(func(context.Context) (Store, error) { return store, nil }, true, discardLogger())

	_, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.created.Load())
}

func TestLazy_AutoCreateSkipsExistingIndex(t *testing.T) {
	store := &stubStore{exists: true}
	lazy := NewLazy(func(context.Context) (Store, error) { return store, nil }, true, discardLogger())

	_, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, store.created.Load())
}

func TestLazy_AutoCreateToleratesConcurrentCreation(t *testing.T) {
	store := &stubStore{exists: false, createErr: apperrors.AlreadyExists("index", "products")}
	lazy := NewLazy(func(context.Context) (Store, error) { return store, nil }, true, discardLogger())

	_, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, lazy.Initialized())
}

func TestLazy_AutoCreateFailureIsNotCached(t *testing.T) {
	store := &stubStore{exists: false, createErr: errors.New("mapping rejected")}
	lazy := NewLazy(func(context.Context) (Store, error) { return store, nil }, true, discardLogger())

	_, err := lazy.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create search index")
	assert.False(t, lazy.Initialized())
}
