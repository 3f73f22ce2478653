package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Store operation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds Prometheus collectors for registration handling.
// All methods are no-ops on a nil *Metrics.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	RegisterLatency prometheus.Histogram

	StoreOperations       *prometheus.CounterVec
	StoreOperationLatency *prometheus.HistogramVec
	StoredRecords         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of registration attempts, labeled by outcome",
		}, []string{"outcome"}),
		RegisterLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "register_latency_seconds",
			Help:      "Latency of the full read-modify-write registration cycle in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of document store operations, labeled by backend, operation and result",
		}, []string{"backend", "operation", "result"}),
		StoreOperationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_latency_seconds",
			Help:      "Latency of document store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		StoredRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_records",
			Help:      "Number of records in the document after the last successful registration",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Registrations,
		m.RegisterLatency,
		m.StoreOperations,
		m.StoreOperationLatency,
		m.StoredRecords,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) IncrementRegistrations(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRegisterLatency(durationSeconds float64) {
	if m == nil {
		return
	}
	m.RegisterLatency.Observe(durationSeconds)
}

func (m *Metrics) SetStoredRecords(count int) {
	if m == nil {
		return
	}
	m.StoredRecords.Set(float64(count))
}

// ObserveStoreOperation records one store call and its latency.
func (m *Metrics) ObserveStoreOperation(backend, operation, result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(backend, operation, result).Inc()
	m.StoreOperationLatency.WithLabelValues(backend, operation).Observe(durationSeconds)
}
