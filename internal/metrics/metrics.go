// Package metrics provides Prometheus instrumentation for store round trips.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "firerecord"

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeStoreError  = "store_error"
	OutcomeUnavailable = "unavailable"
)

// Collector holds the store request metrics.
type Collector struct {
	StoreRequests *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		StoreRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_requests_total",
				Help:      "Total number of store requests by verb and outcome",
			},
			[]string{"verb", "outcome"},
		),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_request_duration_seconds",
				Help:      "Store request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"verb"},
		),
	}
}

// Observe records one completed request. A nil collector is a no-op.
func (c *Collector) Observe(verb, outcome string, started time.Time) {
	if c == nil {
		return
	}
	c.StoreRequests.WithLabelValues(verb, outcome).Inc()
	c.StoreDuration.WithLabelValues(verb).Observe(time.Since(started).Seconds())
}

// RequestCounts reads the store request counter from g, keyed "verb/outcome".
func RequestCounts(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != namespace+"_store_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var verb, outcome string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "verb":
					verb = l.GetValue()
				case "outcome":
					outcome = l.GetValue()
				}
			}
			out[verb+"/"+outcome] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}
