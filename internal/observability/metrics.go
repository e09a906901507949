package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	reductions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spectralcube",
			Name:      "reduction_total",
			Help:      "Total reductions computed.",
		},
		[]string{"op", "strategy"},
	)
	reductionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spectralcube",
			Name:      "reduction_duration_seconds",
			Help:      "Reduction duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "strategy"},
	)
	chunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spectralcube",
			Name:      "chunks_total",
			Help:      "Chunks evaluated by the executor.",
		},
		[]string{"op"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(reductions, reductionDuration, chunks)
	})
}

func RecordReduction(op, strategy string, duration time.Duration) {
	RegisterMetrics()
	reductions.WithLabelValues(op, strategy).Inc()
	reductionDuration.WithLabelValues(op, strategy).Observe(duration.Seconds())
}

func RecordChunks(op string, n int) {
	RegisterMetrics()
	chunks.WithLabelValues(op).Add(float64(n))
}
