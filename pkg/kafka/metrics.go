package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message outcomes used as the "outcome" label.
const (
	outcomeProcessed    = "processed"
	outcomeFailed       = "failed"
	outcomeDeadLettered = "dead_lettered"
	outcomePublished    = "published"
	outcomeError        = "error"
)

var (
	consumedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "kafka",
		Name:      "consumed_messages_total",
		Help:      "Kafka messages handled by a consumer, by outcome.",
	}, []string{"topic", "group", "outcome"})

	handleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalog",
		Subsystem: "kafka",
		Name:      "handle_duration_seconds",
		Help:      "Time spent handling one message, retries included.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"topic", "group"})

	producedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "kafka",
		Name:      "produced_messages_total",
		Help:      "Kafka messages written by a producer, by outcome.",
	}, []string{"topic", "outcome"})
)
