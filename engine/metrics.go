package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultInvalid = "invalid"
	resultStore   = "store_error"
)

// Metrics counts engine outcomes.
type Metrics struct {
	outcomesTotal *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
}

// NewMetrics registers the engine metrics with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return &Metrics{
		outcomesTotal: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Namespace: "schemagate",
			Name:      "outcomes_total",
			Help:      "Total number of entities processed by kind and result.",
		}, []string{"kind", "result"}),
		checkDuration: promauto.With(registerer).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schemagate",
			Name:      "check_duration_seconds",
			Help:      "Time (in seconds) spent validating and persisting one entity.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(kind string, out Outcome, elapsed time.Duration) {
	result := resultSuccess

	switch {
	case out.Success:
	case out.IsStoreError():
		result = resultStore
	default:
		result = resultInvalid
	}

	m.outcomesTotal.WithLabelValues(kind, result).Inc()
	m.checkDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
