package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront-search/internal/config"
	"github.com/glowcart/storefront-search/internal/index"
	"github.com/glowcart/storefront-search/pkg/logger"
)

func TestNewIndexFactory_Bleve(t *testing.T) {
	cfg := &config.Config{SearchEngine: config.EngineBleve, ElasticsearchIndex: "app_test"}

	factory, closeIndex, err := newIndexFactory(cfg, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, closeIndex)
	defer func() { assert.NoError(t, closeIndex()) }()

	lazy := index.NewLazy(factory, true, logger.Discard())
	store, err := lazy.Get(context.Background())
	require.NoError(t, err)

	exists, err := store.IndexExists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewIndexFactory_ElasticsearchUnreachable(t *testing.T) {
	cfg := &config.Config{
		SearchEngine:       config.EngineElasticsearch,
		ElasticsearchURLs:  []string{"http://127.0.0.1:1"},
		ElasticsearchIndex: "app_test",
	}

	factory, closeIndex, err := newIndexFactory(cfg, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, closeIndex)

	_, err = factory(context.Background())
	assert.Error(t, err)
}

func TestNewIndexFactory_UnknownEngine(t *testing.T) {
	_, _, err := newIndexFactory(&config.Config{SearchEngine: "solr"}, logger.Discard())
	assert.Error(t, err)
}
