// Package event applies catalog product events to the search index.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glowcart/storefront-search/internal/domain"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
	pkgkafka "github.com/glowcart/storefront-search/pkg/kafka"
)

// Product event topics.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// Syncer is the part of the synchronization controller driven by events.
type Syncer interface {
	IndexProduct(ctx context.Context, id string) (*domain.SyncResult, error)
	DeleteProduct(ctx context.Context, id string) (*domain.SyncResult, error)
}

// productRef is the part of a product event payload the consumer reads.
type productRef struct {
	ID string `json:"id"`
}

// Consumer turns product events into single-document sync actions. The
// document is always rebuilt from the catalog, so the payload only needs
// to identify the product.
type Consumer struct {
	syncer Syncer
	logger *slog.Logger
}

// NewConsumer creates a product event consumer.
func NewConsumer(syncer Syncer, logger *slog.Logger) *Consumer {
	return &Consumer{syncer: syncer, logger: logger}
}

// Handle applies one event. Unknown event types are ignored.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		id, err := productID(event)
		if err != nil {
			return err
		}
		if _, err := c.syncer.IndexProduct(ctx, id); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// Deactivated or already deleted products must not linger.
				return c.remove(ctx, event, id)
			}
			return fmt.Errorf("index product %s from %s: %w", id, event.EventType, err)
		}
		c.logger.InfoContext(ctx, "indexed product from event",
			slog.String("event_type", event.EventType),
			slog.String("product_id", id),
		)
		return nil

	case TopicProductDeleted:
		id, err := productID(event)
		if err != nil {
			return err
		}
		return c.remove(ctx, event, id)

	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) remove(ctx context.Context, event *pkgkafka.Event, id string) error {
	if _, err := c.syncer.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("remove product %s from %s: %w", id, event.EventType, err)
	}
	c.logger.InfoContext(ctx, "removed product from index",
		slog.String("event_type", event.EventType),
		slog.String("product_id", id),
	)
	return nil
}

// productID reads the product ID from the payload, falling back to the
// aggregate ID of the envelope.
func productID(event *pkgkafka.Event) (string, error) {
	var ref productRef
	if len(event.Data) > 0 {
		if err := event.UnmarshalData(&ref); err != nil && event.AggregateID == "" {
			return "", err
		}
	}
	if ref.ID != "" {
		return ref.ID, nil
	}
	if event.AggregateID != "" {
		return event.AggregateID, nil
	}
	return "", fmt.Errorf("%s event %s carries no product id", event.EventType, event.EventID)
}
