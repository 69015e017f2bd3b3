package indexsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts sync actions by action and outcome.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_sync_actions_total",
			Help: "Total number of index synchronization actions by outcome (success, partial, error)",
		},
		[]string{"action", "outcome"},
	)

	// ActionDuration observes how long each sync action takes.
	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_sync_action_duration_seconds",
			Help:    "Duration of index synchronization actions in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"action"},
	)

	// DocumentsWritten counts documents written by bulk indexing, by result.
	DocumentsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_sync_documents_written_total",
			Help: "Total number of documents written to the search index by bulk indexing",
		},
		[]string{"result"},
	)

	// DocumentsIndexed is the index document count seen by the last status check.
	DocumentsIndexed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_sync_documents_indexed",
			Help: "Number of documents in the search index at the last status check",
		},
	)

	// ProductsInCatalog is the active product count seen by the last status check.
	ProductsInCatalog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_sync_products_in_catalog",
			Help: "Number of active catalog products at the last status check",
		},
	)
)
