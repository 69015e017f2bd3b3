package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glowcart/storefront-search/internal/config"
	"github.com/glowcart/storefront-search/internal/index"
	"github.com/glowcart/storefront-search/internal/index/bleveindex"
	"github.com/glowcart/storefront-search/internal/index/elasticsearch"
)

// newIndexFactory returns the factory of the configured backend and a
// function releasing it.
func newIndexFactory(cfg *config.Config, logger *slog.Logger) (index.Factory, func() error, error) {
	switch cfg.SearchEngine {
	case config.EngineBleve:
		store, err := bleveindex.New(cfg.ElasticsearchIndex, cfg.BlevePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init bleve index: %w", err)
		}
		logger.Info("bleve search index configured",
			slog.String("path", cfg.BlevePath),
			slog.Bool("in_memory", cfg.BlevePath == ""),
		)
		return func(context.Context) (index.Store, error) { return store, nil }, store.Close, nil

	case config.EngineElasticsearch:
		store, err := elasticsearch.New(elasticsearch.Config{
			Addresses: cfg.ElasticsearchURLs,
			Username:  cfg.ElasticsearchUsername,
			Password:  cfg.ElasticsearchPassword,
			Index:     cfg.ElasticsearchIndex,
			Refresh:   cfg.ElasticsearchRefresh,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init elasticsearch client: %w", err)
		}
		logger.Info("elasticsearch search index configured",
			slog.Any("addresses", cfg.ElasticsearchURLs),
			slog.String("index", store.IndexName()),
		)
		factory := func(ctx context.Context) (index.Store, error) {
			if err := store.Ping(ctx); err != nil {
				return nil, err
			}
			return store, nil
		}
		return factory, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported search engine %q", cfg.SearchEngine)
	}
}
