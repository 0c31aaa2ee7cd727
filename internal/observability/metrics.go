// Package observability holds the prometheus collectors of a scrape run.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snowboard"

// Metrics is safe to use through a nil pointer, in which case every
// recording method is a no-op.
type Metrics struct {
	PagesFetched      prometheus.Counter
	PagesFailed       prometheus.Counter
	ContainersLocated prometheus.Counter
	ContainersSkipped prometheus.Counter
	RecordsEmitted    prometheus.Counter
	DuplicatesDropped prometheus.Counter
	Images            *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	LastRunProducts   prometheus.Gauge
	LastRunTimestamp  prometheus.Gauge

	registry *prometheus.Registry
}

// New registers the collectors on reg. A nil reg gets a fresh registry with
// the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Listing pages fetched and parsed.",
		}),
		PagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_failed_total",
			Help:      "Listing pages that could not be fetched.",
		}),
		ContainersLocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "containers_located_total",
			Help:      "Product containers located on listing pages.",
		}),
		ContainersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "containers_skipped_total",
			Help:      "Containers skipped for an unresolved name or a failed extraction.",
		}),
		RecordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Product records kept after deduplication.",
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Product records dropped as duplicates.",
		}),
		Images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Product image downloads by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete scrape run.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		LastRunProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_products",
			Help:      "Products in the most recent catalog.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run finished.",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.PagesFetched,
		m.PagesFailed,
		m.ContainersLocated,
		m.ContainersSkipped,
		m.RecordsEmitted,
		m.DuplicatesDropped,
		m.Images,
		m.RunDuration,
		m.LastRunProducts,
		m.LastRunTimestamp,
	)

	return m
}

// ObservePage records one parsed page.
func (m *Metrics) ObservePage(containers, skipped, emitted, dropped int) {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
	m.ContainersLocated.Add(float64(containers))
	m.ContainersSkipped.Add(float64(skipped))
	m.RecordsEmitted.Add(float64(emitted))
	m.DuplicatesDropped.Add(float64(dropped))
}

func (m *Metrics) PageFailed() {
	if m == nil {
		return
	}
	m.PagesFailed.Inc()
}

// ImageResult counts one image download; result is "downloaded", "cached"
// or "failed".
func (m *Metrics) ImageResult(result string) {
	if m == nil {
		return
	}
	m.Images.WithLabelValues(result).Inc()
}

func (m *Metrics) RunCompleted(d time.Duration, products int) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
	m.LastRunProducts.Set(float64(products))
	m.LastRunTimestamp.SetToCurrentTime()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
