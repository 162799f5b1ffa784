package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/CatalogGo/internal/domain"
	pkgkafka "github.com/utafrali/CatalogGo/pkg/kafka"
)

// publisher is the part of *pkgkafka.Producer the relay needs.
type publisher interface {
	PublishBatch(ctx context.Context, topic string, events []*pkgkafka.Event) error
}

// Producer publishes reindex jobs to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new reindex job producer.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Dispatch publishes one event per job in a single batch. The event id is
// derived from the outbox row id so redelivered rows keep their identity.
func (p *Producer) Dispatch(ctx context.Context, jobs []domain.ReindexJob) error {
	if len(jobs) == 0 {
		return nil
	}

	events := make([]*pkgkafka.Event, 0, len(jobs))
	for _, job := range jobs {
		evt, err := pkgkafka.NewEventWithID(
			"reindex-"+strconv.FormatInt(job.ID, 10),
			EventTypeProductReindex,
			job.ProductID,
			AggregateTypeProduct,
			SourceCatalog,
			ReindexData{ProductID: job.ProductID, JobID: job.ID},
		)
		if err != nil {
			return fmt.Errorf("create reindex event: %w", err)
		}
		events = append(events, evt)
	}

	if err := p.kafka.PublishBatch(ctx, TopicProductReindex, events); err != nil {
		return fmt.Errorf("publish reindex jobs: %w", err)
	}

	p.logger.DebugContext(ctx, "reindex jobs published", slog.Int("count", len(events)))
	return nil
}
