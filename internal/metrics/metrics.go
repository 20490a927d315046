// Package metrics holds the Prometheus collectors for the journal engine.
//
// Collectors live on a private registry owned by Metrics so that isolated
// test instances never collide on the global default registry. All
// methods are safe on a nil *Metrics, which disables collection.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/brewlog/internal/record"
)

const namespace = "brewlog"

// Metrics bundles the engine's collectors.
type Metrics struct {
	registry *prometheus.Registry

	mutations      *prometheus.CounterVec
	storeVersion   prometheus.Gauge
	queryDuration  *prometheus.HistogramVec
	insightRuns    *prometheus.CounterVec
	unlocks        *prometheus.CounterVec
	dashboardCache *prometheus.CounterVec
}

// New creates a Metrics with every collector registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Record store mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		storeVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "version",
			Help:      "Current store-version counter.",
		}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Duration of read-side computations by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		}, []string{"kind"}),
		insightRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "insight",
			Name:      "evaluations_total",
			Help:      "Insight evaluations by period and whether the result was personalized.",
		}, []string{"period", "personalized"}),
		unlocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "achievement",
			Name:      "unlocks_total",
			Help:      "Achievement unlock transitions.",
		}, []string{"achievement"}),
		dashboardCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "cache_lookups_total",
			Help:      "Dashboard cache lookups by result.",
		}, []string{"result"}),
	}
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveMutation counts a store mutation. The outcome label is derived
// from the error taxonomy.
func (m *Metrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome(err)).Inc()
}

// SetStoreVersion records the latest store version.
func (m *Metrics) SetStoreVersion(v uint64) {
	if m == nil {
		return
	}
	m.storeVersion.Set(float64(v))
}

// ObserveCompute records how long a read-side computation took.
func (m *Metrics) ObserveCompute(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveInsights counts one insight evaluation.
func (m *Metrics) ObserveInsights(period string, personalized bool) {
	if m == nil {
		return
	}
	m.insightRuns.WithLabelValues(period, strconv.FormatBool(personalized)).Inc()
}

// ObserveUnlock counts one achievement unlock.
func (m *Metrics) ObserveUnlock(achievementID string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(achievementID).Inc()
}

// ObserveDashboardCache counts a dashboard cache hit or miss.
func (m *Metrics) ObserveDashboardCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.dashboardCache.WithLabelValues(result).Inc()
}

// WriteTextfile writes the current metrics in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return errors.New("metrics: collection disabled")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case record.IsValidation(err):
		return "validation"
	case record.IsNotFound(err):
		return "not_found"
	case record.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}
