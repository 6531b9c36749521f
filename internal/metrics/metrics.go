// Package metrics exposes auth counters and hash latency to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records auth metrics. It satisfies auth.Recorder.
type Collector struct {
	authEvents      *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	hashDuration    *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "natours",
			Name:      "auth_events_total",
			Help:      "Auth operations by event and outcome.",
		}, []string{"event", "outcome"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "natours",
			Name:      "guard_rejections_total",
			Help:      "Requests rejected by the request guard, by reason.",
		}, []string{"reason"}),
		hashDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "natours",
			Name:      "password_hash_duration_seconds",
			Help:      "Time spent hashing or verifying passwords.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
	}

	reg.MustRegister(c.authEvents, c.guardRejections, c.hashDuration)
	return c
}

func (c *Collector) RecordAuthEvent(event, outcome string) {
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

func (c *Collector) RecordGuardRejection(reason string) {
	c.guardRejections.WithLabelValues(reason).Inc()
}

func (c *Collector) ObserveHashDuration(op string, d time.Duration) {
	c.hashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
