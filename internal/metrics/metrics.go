// Package metrics registers and updates the Prometheus metrics surfaced by
// the proxy's HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for pgconvey.
type Collector struct {
	Registry *prometheus.Registry

	messagesTotal     *prometheus.CounterVec
	bytesForwarded    *prometheus.CounterVec
	conveyorDuration  *prometheus.HistogramVec
	conveyorsActive   *prometheus.GaugeVec
	tlsSplicesTotal   *prometheus.CounterVec
	decodeErrorsTotal *prometheus.CounterVec

	routeHealth         *prometheus.GaugeVec
	healthCheckDuration *prometheus.HistogramVec
	healthCheckErrors   *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics using a custom registry.
// Safe to call multiple times (e.g., in tests or on config reload) — each
// call creates an independent registry that doesn't conflict with others.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgconvey_messages_total",
				Help: "Total number of protocol messages observed, by route, direction, and kind",
			},
			[]string{"route", "direction", "kind"},
		),
		bytesForwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgconvey_bytes_forwarded_total",
				Help: "Total raw bytes forwarded between legs, by route and direction",
			},
			[]string{"route", "direction"},
		),
		conveyorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgconvey_conveyor_duration_seconds",
				Help:    "Duration of a conveyor's lifetime, from accept to termination",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 18),
			},
			[]string{"route", "result"},
		),
		conveyorsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgconvey_conveyors_active",
				Help: "Number of currently running conveyors per route",
			},
			[]string{"route"},
		),
		tlsSplicesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgconvey_tls_splices_total",
				Help: "TLS splice attempts by route and outcome",
			},
			[]string{"route", "outcome"},
		),
		decodeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgconvey_decode_errors_total",
				Help: "Decode errors by route and problem kind",
			},
			[]string{"route", "problem"},
		),
		routeHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pgconvey_route_health",
				Help: "Health status of a route's backend (1=healthy, 0=unhealthy)",
			},
			[]string{"route"},
		),
		healthCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pgconvey_health_check_duration_seconds",
				Help:    "Duration of health check probes",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"route", "status"},
		),
		healthCheckErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgconvey_health_check_errors_total",
				Help: "Health check errors by type",
			},
			[]string{"route", "error_type"},
		),
	}

	reg.MustRegister(
		c.messagesTotal,
		c.bytesForwarded,
		c.conveyorDuration,
		c.conveyorsActive,
		c.tlsSplicesTotal,
		c.decodeErrorsTotal,
		c.routeHealth,
		c.healthCheckDuration,
		c.healthCheckErrors,
	)

	return c
}

// MessageObserved increments the message counter for one decoded message.
func (c *Collector) MessageObserved(route, direction, kind string) {
	c.messagesTotal.WithLabelValues(route, direction, kind).Inc()
}

// BytesForwarded adds n to the forwarded-bytes counter for one leg.
func (c *Collector) BytesForwarded(route, direction string, n int) {
	c.bytesForwarded.WithLabelValues(route, direction).Add(float64(n))
}

// ConveyorStarted increments the active-conveyor gauge for a route.
func (c *Collector) ConveyorStarted(route string) {
	c.conveyorsActive.WithLabelValues(route).Inc()
}

// ConveyorFinished decrements the active-conveyor gauge and records the
// conveyor's total lifetime, labeled by its terminal result.
func (c *Collector) ConveyorFinished(route, result string, d time.Duration) {
	c.conveyorsActive.WithLabelValues(route).Dec()
	c.conveyorDuration.WithLabelValues(route, result).Observe(d.Seconds())
}

// TLSSpliceCompleted records a TLS splice attempt's outcome ("upgraded",
// "rejected", or "failed").
func (c *Collector) TLSSpliceCompleted(route, outcome string) {
	c.tlsSplicesTotal.WithLabelValues(route, outcome).Inc()
}

// DecodeErrorObserved increments the decode-error counter for a problem
// kind ("incorrect" or "unknown").
func (c *Collector) DecodeErrorObserved(route, problem string) {
	c.decodeErrorsTotal.WithLabelValues(route, problem).Inc()
}

// SetRouteHealth sets the health gauge for a route.
func (c *Collector) SetRouteHealth(route string, healthy bool) {
	val := 0.0
	if healthy {
		val = 1.0
	}
	c.routeHealth.WithLabelValues(route).Set(val)
}

// HealthCheckCompleted records a health check probe duration and result.
func (c *Collector) HealthCheckCompleted(route string, d time.Duration, healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	c.healthCheckDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// HealthCheckError records a health check error by type.
func (c *Collector) HealthCheckError(route, errorType string) {
	c.healthCheckErrors.WithLabelValues(route, errorType).Inc()
}

// RemoveRoute removes all metrics for a route that has been dropped from
// config.
func (c *Collector) RemoveRoute(route string) {
	c.messagesTotal.DeletePartialMatch(prometheus.Labels{"route": route})
	c.bytesForwarded.DeletePartialMatch(prometheus.Labels{"route": route})
	c.conveyorDuration.DeletePartialMatch(prometheus.Labels{"route": route})
	c.conveyorsActive.DeleteLabelValues(route)
	c.tlsSplicesTotal.DeletePartialMatch(prometheus.Labels{"route": route})
	c.decodeErrorsTotal.DeletePartialMatch(prometheus.Labels{"route": route})
	c.routeHealth.DeleteLabelValues(route)
	c.healthCheckDuration.DeletePartialMatch(prometheus.Labels{"route": route})
	c.healthCheckErrors.DeletePartialMatch(prometheus.Labels{"route": route})
}
