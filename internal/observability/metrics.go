package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/cache"
)

const metricsNamespace = "ipl"

// Metrics owns a private Prometheus registry with the snapshot pipeline
// counters plus the Go runtime and process collectors.
type Metrics struct {
	registry   *prometheus.Registry
	fetches    *prometheus.CounterVec
	provenance *prometheus.CounterVec
	cache      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "source_fetch_total",
			Help:      "Source adapter fetches by outcome.",
		}, []string{"source", "outcome"}),
		provenance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "section_provenance_total",
			Help:      "Built snapshot sections by the source that supplied them.",
		}, []string{"section", "source"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_requests_total",
			Help:      "Snapshot cache lookups by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetches,
		m.provenance,
		m.cache,
	)
	return m
}

func (m *Metrics) ObserveSourceFetch(source, outcome string) {
	m.fetches.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveSectionProvenance(section tournament.Section, source string) {
	m.provenance.WithLabelValues(string(section), source).Inc()
}

// ObserveCache is passed to cache.WithObserver.
func (m *Metrics) ObserveCache(status cache.Status) {
	m.cache.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
