package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
	pkgkafka "github.com/utafrali/CatalogGo/pkg/kafka"
)

// Syncer rebuilds or removes one product's search document.
type Syncer interface {
	Sync(ctx context.Context, productID string) error
}

// Consumer applies reindex events to the search index.
type Consumer struct {
	index  Syncer
	logger *slog.Logger
}

// NewConsumer creates a new reindex event consumer.
func NewConsumer(index Syncer, logger *slog.Logger) *Consumer {
	return &Consumer{
		index:  index,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case EventTypeProductReindex:
		return c.handleReindex(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleReindex(ctx context.Context, event *pkgkafka.Event) error {
	var data ReindexData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal reindex data: %w", err)
	}
	if data.ProductID == "" {
		data.ProductID = event.AggregateID
	}

	if err := SyncProduct(ctx, c.index, c.logger, data.ProductID); err != nil {
		return fmt.Errorf("reindex product %s: %w", data.ProductID, err)
	}
	return nil
}

// SyncProduct syncs one product. A product whose graph is incomplete cannot
// be indexed until another mutation fixes it, so it is logged and dropped
// instead of retried.
func SyncProduct(ctx context.Context, index Syncer, logger *slog.Logger, productID string) error {
	err := index.Sync(ctx, productID)
	if err == nil {
		return nil
	}

	if errors.Is(err, apperrors.ErrMissingRelation) {
		logger.ErrorContext(ctx, "product cannot be indexed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return err
}
