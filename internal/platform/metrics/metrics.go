// Package metrics exposes Prometheus metrics for the HTTP server and the
// document placement domain.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and all instruments. One instance is created at
// startup and shared by the middleware and the domain services.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	documentsPlaced  prometheus.Counter
	claims           *prometheus.CounterVec
	extractionRuns   *prometheus.CounterVec
	auditDropped     prometheus.Counter
	transitionsTotal *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "refdock",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "refdock",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "refdock",
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Number of in-flight HTTP requests.",
			},
		),
		documentsPlaced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "refdock",
				Subsystem: "documents",
				Name:      "placed_total",
				Help:      "Documents placed into a recipient harbor.",
			},
		),
		claims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "refdock",
				Subsystem: "documents",
				Name:      "claims_total",
				Help:      "Harbor claim attempts by outcome.",
			},
			[]string{"outcome"},
		),
		extractionRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "refdock",
				Subsystem: "extraction",
				Name:      "runs_total",
				Help:      "Extraction runs by outcome.",
			},
			[]string{"outcome"},
		),
		auditDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "refdock",
				Subsystem: "audit",
				Name:      "dropped_total",
				Help:      "Audit events dropped because the sink buffer was full.",
			},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "refdock",
				Subsystem: "documents",
				Name:      "transitions_total",
				Help:      "Document lifecycle transitions by target status.",
			},
			[]string{"to"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.documentsPlaced,
		m.claims,
		m.extractionRuns,
		m.auditDropped,
		m.transitionsTotal,
	)
	return m
}

// Middleware instruments every request. The route path (not the raw URL) is
// used as the path label to keep cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.requestInFlight.Inc()
			start := time.Now()

			err := next(c)

			m.requestInFlight.Dec()

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.requestTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

func (m *Metrics) DocumentPlaced()              { m.documentsPlaced.Inc() }
func (m *Metrics) ClaimWon()                    { m.claims.WithLabelValues("won").Inc() }
func (m *Metrics) ClaimLost()                   { m.claims.WithLabelValues("lost").Inc() }
func (m *Metrics) ExtractionRun(outcome string) { m.extractionRuns.WithLabelValues(outcome).Inc() }
func (m *Metrics) AuditDropped()                { m.auditDropped.Inc() }
func (m *Metrics) Transition(to string)         { m.transitionsTotal.WithLabelValues(to).Inc() }
