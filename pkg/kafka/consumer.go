package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/glowcart/storefront-search/pkg/kafka"

// TopicPrefix is the prefix shared by all storefront topics.
const TopicPrefix = "ecommerce"

// Topic builds a fully qualified topic name such as ecommerce.product.created.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds consumer group settings.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// Consumer reads events from a consumer group and hands each one to a
// Handler exactly once. A message is committed whether or not the handler
// succeeds; failures are logged and counted, never retried.
type Consumer struct {
	reader    MessageReader
	group     string
	handler   Handler
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewConsumer creates a consumer group reader for cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	})
	return NewConsumerWithReader(r, cfg.GroupID, handler, logger)
}

// NewConsumerWithReader creates a consumer over an existing reader.
func NewConsumerWithReader(r MessageReader, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{reader: r, group: group, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled, then closes the reader. Fetch errors
// other than cancellation are returned.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("event consumer started", slog.String("group", c.group))
	defer func() {
		if err := c.Close(); err != nil {
			c.logger.Warn("close event consumer", slog.String("error", err.Error()))
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("event consumer stopping", slog.String("group", c.group))
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		ConsumerMessagesReceived.WithLabelValues(msg.Topic, c.group).Inc()

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(msg.Headers))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	start := time.Now()
	err := c.handle(ctx, msg)
	ConsumerProcessingDuration.WithLabelValues(msg.Topic, c.group).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
		c.logger.ErrorContext(ctx, "event handling failed, message skipped",
			slog.String("topic", msg.Topic),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}
	ConsumerMessagesProcessed.WithLabelValues(msg.Topic, c.group).Inc()
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if event.EventType == "" {
		event.EventType = msg.Topic
	}
	return c.handler(ctx, event)
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.reader.Close() })
	return err
}

// headerCarrier adapts message headers to a propagation.TextMapCarrier for
// extraction.
type headerCarrier []kafka.Header

func (h headerCarrier) Get(key string) string {
	for _, hdr := range h {
		if hdr.Key == key {
			return string(hdr.Value)
		}
	}
	return ""
}

// Set is a no-op; consumed headers are read only.
func (h headerCarrier) Set(string, string) {}

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for _, hdr := range h {
		keys = append(keys, hdr.Key)
	}
	return keys
}
