package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/glowcart/storefront-search/pkg/errors"
)

// Factory connects to the backend and returns a ready Store.
type Factory func(ctx context.Context) (Store, error)

// Lazy holds the process-wide index handle. The first caller of Get runs the
// factory; concurrent callers wait for it. Only a successful initialization
// is cached, so a failed connection is retried by the next caller.
type Lazy struct {
	mu         sync.Mutex
	store      Store
	factory    Factory
	autoCreate bool
	logger     *slog.Logger
}

// NewLazy creates a lazy handle. When autoCreate is set, the first
// successful connection also creates the index if it does not exist.
func NewLazy(factory Factory, autoCreate bool, logger *slog.Logger) *Lazy {
	return &Lazy{factory: factory, autoCreate: autoCreate, logger: logger}
}

// Get returns the initialized store, initializing it if needed.
func (l *Lazy) Get(ctx context.Context) (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}

	store, err := l.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize search index: %w", err)
	}

	if l.autoCreate {
		if err := ensureIndex(ctx, store); err != nil {
			return nil, err
		}
		l.logger.Info("search index ready")
	}

	l.store = store
	return store, nil
}

// Initialized reports whether a store has been cached.
func (l *Lazy) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store != nil
}

func ensureIndex(ctx context.Context, store Store) error {
	exists, err := store.IndexExists(ctx)
	if err != nil {
		return fmt.Errorf("check search index: %w", err)
	}
	if exists {
		return nil
	}
	if err := store.CreateIndex(ctx); err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
		return fmt.Errorf("create search index: %w", err)
	}
	return nil
}
