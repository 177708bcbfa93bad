// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Collectors are registered on an explicit registry created at startup and
// handed to the components that record into them. A nil *Metrics is valid and
// records nothing, which keeps unit tests free of registry plumbing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "essence"

// Metrics groups every collector the service records into.
type Metrics struct {
	guardDecisions  *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Authorization decisions taken by route guards.",
		}, []string{"decision"}),

		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events published, by kind.",
		}, []string{"kind"}),

		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound HTTP calls, by upstream and outcome.",
		}, []string{"upstream", "outcome"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests served.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	registerer.MustRegister(
		metrics.guardDecisions,
		metrics.sessionEvents,
		metrics.upstreamCalls,
		metrics.requestDuration,
	)
	return metrics
}

// NewRegistry creates a registry with process and Go runtime collectors plus [Metrics].
func NewRegistry() (*prometheus.Registry, *Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, New(registry)
}

// Handler returns the /metrics endpoint for a registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// # Recorders

// GuardDecision counts one authorization decision.
func (metrics *Metrics) GuardDecision(decision string) {
	if metrics == nil {
		return
	}
	metrics.guardDecisions.WithLabelValues(decision).Inc()
}

// SessionEvent counts one published session event.
func (metrics *Metrics) SessionEvent(kind string) {
	if metrics == nil {
		return
	}
	metrics.sessionEvents.WithLabelValues(kind).Inc()
}

// UpstreamCall counts one outbound call.
func (metrics *Metrics) UpstreamCall(upstream, outcome string) {
	if metrics == nil {
		return
	}
	metrics.upstreamCalls.WithLabelValues(upstream, outcome).Inc()
}

// ObserveRequest records the latency of one served request.
func (metrics *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	metrics.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
