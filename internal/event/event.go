// Package event carries reindex jobs between the outbox relay and the index
// consumer over Kafka.
package event

import (
	pkgkafka "github.com/utafrali/CatalogGo/pkg/kafka"
)

// TopicProductReindex is the topic every reindex job is published to.
var TopicProductReindex = pkgkafka.Topic("product", "reindex")

// EventTypeProductReindex is the event type of a reindex job.
const EventTypeProductReindex = "catalog.product.reindex"

// AggregateTypeProduct is the aggregate type of a reindex job.
const AggregateTypeProduct = "product"

// SourceCatalog identifies events originating from this service.
const SourceCatalog = "catalog-service"

// ReindexData is the payload of a reindex event.
type ReindexData struct {
	ProductID string `json:"product_id"`
	// JobID is the outbox row the event was relayed from.
	JobID int64 `json:"job_id"`
}
