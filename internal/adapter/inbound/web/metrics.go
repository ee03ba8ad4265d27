// Package web provides shared HTTP server plumbing for the inbound
// adapters: metrics, middleware and JSON helpers.
package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway and auth server.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ProxyErrors     *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	LoginsTotal     *prometheus.CounterVec
	UsageDropsTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "greensteel",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"service", "code"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "greensteel",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets, // 5ms to 10s
			},
			[]string{"service"},
		),
		ProxyErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "greensteel",
				Name:      "proxy_errors_total",
				Help:      "Total forwarding failures by kind",
			},
			[]string{"kind"}, // kind=unknown_service/gateway_timeout/service_unreachable/upstream_error
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "greensteel",
				Name:      "active_sessions",
				Help:      "Number of active sessions",
			},
		),
		LoginsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "greensteel",
				Name:      "logins_total",
				Help:      "Total login attempts",
			},
			[]string{"result"}, // result=success/failure
		),
		UsageDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "greensteel",
				Name:      "usage_drops_total",
				Help:      "Total usage records dropped due to backpressure",
			},
		),
	}
}
