// package metrics exposes refresh, cache and HTTP instrumentation for Prometheus
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/spindb/internal/models"
)

const namespace = "spindb"

// Metrics holds every collector on a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	SnapshotRecords *prometheus.GaugeVec
	SnapshotVersion prometheus.Gauge
	CacheLookups    *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors. Go runtime and process collectors are included.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refreshes_total",
				Help:      "Total number of aggregation runs by outcome",
			},
			[]string{"outcome"},
		),
		RefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Wall time of aggregation runs",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		SnapshotRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_records",
				Help:      "Records in the current snapshot by kind",
			},
			[]string{"kind"},
		),
		SnapshotVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_version",
				Help:      "Version of the most recently stored snapshot",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_lookups_total",
				Help:      "Report cache lookups by query and result",
			},
			[]string{"query", "result"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RefreshesTotal,
		m.RefreshDuration,
		m.SnapshotRecords,
		m.SnapshotVersion,
		m.CacheLookups,
		m.RequestsTotal,
		m.RequestDuration,
	)

	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRefresh records one aggregation run. info is nil for failed runs.
func (m *Metrics) ObserveRefresh(outcome string, elapsed time.Duration, info *models.SnapshotInfo) {
	m.RefreshesTotal.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(elapsed.Seconds())

	if info == nil {
		return
	}
	m.SnapshotVersion.Set(float64(info.Version))
	m.SnapshotRecords.WithLabelValues("playlists").Set(float64(info.Playlists))
	m.SnapshotRecords.WithLabelValues("tracks").Set(float64(info.Tracks))
	m.SnapshotRecords.WithLabelValues("artists").Set(float64(info.Artists))
}

// ObserveCache records a report cache lookup.
func (m *Metrics) ObserveCache(query string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(query, result).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
