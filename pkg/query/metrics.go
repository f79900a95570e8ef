package query

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the Prometheus collectors of one Store. Each Store owns its
// registry so tests and parallel stores never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	HitsTotal          *prometheus.CounterVec
	MissesTotal        *prometheus.CounterVec
	LoadsTotal         *prometheus.CounterVec
	SharedResultsTotal *prometheus.CounterVec
	InvalidationsTotal *prometheus.CounterVec
	SetsTotal          *prometheus.CounterVec
	PersistErrorsTotal *prometheus.CounterVec
	LoadDuration       *prometheus.HistogramVec
	Entries            prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Total number of fetches served from fresh cached data",
			},
			[]string{"query"},
		),
		MissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Total number of fetches that needed a load",
			},
			[]string{"query"},
		),
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_loads_total",
				Help: "Total number of loader executions",
			},
			[]string{"query", "status"},
		),
		SharedResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_shared_results_total",
				Help: "Total number of fetch results shared between concurrent callers of the same key",
			},
			[]string{"query"},
		),
		InvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_invalidations_total",
				Help: "Total number of entries marked stale by invalidation",
			},
			[]string{"query"},
		),
		SetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_sets_total",
				Help: "Total number of direct cache writes",
			},
			[]string{"query"},
		),
		PersistErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_persist_errors_total",
				Help: "Total number of failed persister operations",
			},
			[]string{"operation"},
		),
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_cache_load_duration_seconds",
				Help:    "Loader latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"query"},
		),
		Entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "query_cache_entries",
				Help: "Number of keys currently held in memory",
			},
		),
	}

	m.registry.MustRegister(
		m.HitsTotal,
		m.MissesTotal,
		m.LoadsTotal,
		m.SharedResultsTotal,
		m.InvalidationsTotal,
		m.SetsTotal,
		m.PersistErrorsTotal,
		m.LoadDuration,
		m.Entries,
	)
	return m
}

// Registry exposes the store's collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Stats is a flat summary of the store's counters
type Stats struct {
	Entries       int     `json:"entries"`
	Hits          float64 `json:"hits"`
	Misses        float64 `json:"misses"`
	Loads         float64 `json:"loads"`
	LoadErrors    float64 `json:"load_errors"`
	SharedResults float64 `json:"shared_results"`
	Invalidations float64 `json:"invalidations"`
	Sets          float64 `json:"sets"`
	PersistErrors float64 `json:"persist_errors"`
}

// Stats sums every counter across its label values
func (m *Metrics) Stats() (Stats, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch mf.GetName() {
			case "query_cache_hits_total":
				s.Hits += metric.GetCounter().GetValue()
			case "query_cache_misses_total":
				s.Misses += metric.GetCounter().GetValue()
			case "query_cache_loads_total":
				s.Loads += metric.GetCounter().GetValue()
				if labelValue(metric, "status") == "error" {
					s.LoadErrors += metric.GetCounter().GetValue()
				}
			case "query_cache_shared_results_total":
				s.SharedResults += metric.GetCounter().GetValue()
			case "query_cache_invalidations_total":
				s.Invalidations += metric.GetCounter().GetValue()
			case "query_cache_sets_total":
				s.Sets += metric.GetCounter().GetValue()
			case "query_cache_persist_errors_total":
				s.PersistErrors += metric.GetCounter().GetValue()
			case "query_cache_entries":
				s.Entries = int(metric.GetGauge().GetValue())
			}
		}
	}
	return s, nil
}

// WriteText writes the registry in the Prometheus text exposition format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
