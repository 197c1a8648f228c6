package media

import (
	"github.com/prometheus/client_golang/prometheus"
)

var operationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "demohub",
		Subsystem: "media",
		Name:      "operations_total",
		Help:      "Calls to the media store by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// Collectors returns the metrics this package records, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{operationsTotal}
}

func recordOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
