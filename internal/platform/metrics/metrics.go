// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Computation outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry      *prometheus.Registry
	Computations  *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	CacheRequests *prometheus.CounterVec
	TableReloads  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oncostat",
			Name:      "computations_total",
			Help:      "Analytics computations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oncostat",
			Name:      "computation_duration_seconds",
			Help:      "Wall time of analytics computations.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}, []string{"operation"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oncostat",
			Name:      "cache_requests_total",
			Help:      "Result cache lookups by operation and result (hit or miss).",
		}, []string{"operation", "result"}),
		TableReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oncostat",
			Name:      "clinical_tables_reloads_total",
			Help:      "Clinical table reload attempts by outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		m.Computations,
		m.Duration,
		m.CacheRequests,
		m.TableReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

// TableReloaded counts one clinical tables reload attempt.
func (m *Metrics) TableReloaded(outcome string) {
	m.TableReloads.WithLabelValues(outcome).Inc()
}
