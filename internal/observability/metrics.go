package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the receptionist. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Turns              *prometheus.CounterVec
	ExtractionFailures *prometheus.CounterVec
	StoreOperations    *prometheus.CounterVec
	TurnLatency        prometheus.Histogram
}

// NewMetrics registers the instruments on reg. A nil reg builds unregistered
// instruments.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by emitted action and decision reason.",
		}, []string{"action", "reason"}),
		ExtractionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Slot extraction failures by extractor.",
		}, []string{"extractor"}),
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Booking store operations by operation and result.",
		}, []string{"op", "result"}),
		TurnLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end turn latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
}

func (m *Metrics) ObserveTurn(action, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(action, reason).Inc()
	m.TurnLatency.Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) ObserveExtractionFailure(extractor string) {
	if m == nil {
		return
	}
	m.ExtractionFailures.WithLabelValues(extractor).Inc()
}

func (m *Metrics) ObserveStoreOperation(op, result string) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(op, result).Inc()
}

// MetricsHandler serves g, or the default gatherer when g is nil.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
