package processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flush triggers, used as the "trigger" label value.
const (
	triggerSize = "size"
	triggerTime = "time"
	triggerStop = "stop"
)

// Metrics counts what the batching processors hand to their actions.
// One Metrics can be shared by several processors; they are told apart
// by the "processor" label.
type Metrics struct {
	batches  *prometheus.CounterVec
	entries  *prometheus.CounterVec
	failures *prometheus.CounterVec
	size     *prometheus.HistogramVec
}

// NewMetrics registers the processor collectors with reg. A nil reg
// registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		// batches counts flushes by what triggered them
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jvmscope_batches_flushed_total",
			Help: "Total batches handed to the batch action by trigger",
		}, []string{"processor", "trigger"}),

		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jvmscope_batch_entries_total",
			Help: "Total entries handed to the batch action",
		}, []string{"processor"}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jvmscope_batch_action_failures_total",
			Help: "Total batch actions that returned an error or panicked",
		}, []string{"processor"}),

		size: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jvmscope_batch_size",
			Help:    "Number of entries per flushed batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k
		}, []string{"processor"}),
	}
}

func (m *Metrics) flushed(processor, trigger string, n int) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(processor, trigger).Inc()
	m.entries.WithLabelValues(processor).Add(float64(n))
	m.size.WithLabelValues(processor).Observe(float64(n))
}

func (m *Metrics) failed(processor string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(processor).Inc()
}
