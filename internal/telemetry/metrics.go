package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the generation counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	generated       *prometheus.CounterVec
	failures        *prometheus.CounterVec
	allocations     *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	batchCreatures  prometheus.Histogram
	bundlesInMemory prometheus.Gauge
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modgen",
			Name:      "bundles_generated_total",
			Help:      "Creature bundles synthesized.",
		}, []string{"mode"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modgen",
			Name:      "generation_failures_total",
			Help:      "Generation failures by kind.",
		}, []string{"kind"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modgen",
			Name:      "ids_allocated_total",
			Help:      "Ids drawn from the allocator.",
		}, []string{"counter"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "modgen",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of batch runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		batchCreatures: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "modgen",
			Name:      "batch_creatures",
			Help:      "Creatures generated per batch run.",
			Buckets:   prometheus.LinearBuckets(0, 20, 10),
		}),
		bundlesInMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modgen",
			Name:      "bundles_stored",
			Help:      "Bundles currently held for preview and download.",
		}),
	}
	reg.MustRegister(m.generated, m.failures, m.allocations, m.batchDuration, m.batchCreatures, m.bundlesInMemory)
	return m
}

func (m *Metrics) Generated(mode string) {
	if m != nil {
		m.generated.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) Failed(kind string) {
	if m != nil {
		m.failures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Allocated(counter string) {
	if m != nil {
		m.allocations.WithLabelValues(counter).Inc()
	}
}

func (m *Metrics) BatchFinished(d time.Duration, creatures int) {
	if m != nil {
		m.batchDuration.Observe(d.Seconds())
		m.batchCreatures.Observe(float64(creatures))
	}
}

func (m *Metrics) SetStoredBundles(n int) {
	if m != nil {
		m.bundlesInMemory.Set(float64(n))
	}
}
