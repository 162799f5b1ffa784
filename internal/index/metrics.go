package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var indexOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_index_operations_total",
		Help: "Search index operations by outcome",
	},
	[]string{"operation", "status"},
)

func observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	indexOperationsTotal.WithLabelValues(operation, status).Inc()
}
