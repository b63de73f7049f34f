package mdm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a nil-safe set of pass counters. A nil *Metrics records
// nothing, which keeps tests and one-shot CLI runs free of registration.
type Metrics struct {
	images        *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	probeDuration prometheus.Histogram
}

// NewMetrics registers the pass collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		images: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdm_images_total",
				Help: "Image elements processed, by outcome.",
			},
			[]string{"outcome"}, // live, deleted, skipped
		),
		verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdm_verdicts_total",
				Help: "Liveness verdicts, by deciding source.",
			},
			[]string{"source"}, // registry, probe
		),
		probeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mdm_probe_duration_seconds",
				Help:    "Duration of HEAD reachability probes.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
	}
}

func (m *Metrics) image(outcome string) {
	if m == nil {
		return
	}
	m.images.WithLabelValues(outcome).Inc()
}

func (m *Metrics) verdict(source string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(source).Inc()
}

func (m *Metrics) probe(d time.Duration) {
	if m == nil {
		return
	}
	m.probeDuration.Observe(d.Seconds())
}
