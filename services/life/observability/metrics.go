// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the life HTTP API.
//
// # Description
//
// Metrics include:
//   - Request counters (by route, method, status)
//   - Latency histograms (by route, method)
//   - In-flight request gauge
//   - Error counters (by route, error code)
//   - Rate-limited request counter
//
// Engine-level metrics (generations computed, convergence attempts) are
// OpenTelemetry instruments in the boards package, exported through the
// same registry by the telemetry package.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for life API metrics
const httpSubsystem = "life_http"

// HTTPMetrics holds all Prometheus metrics for the board API.
//
// # Fields
//
//   - RequestsTotal: Counter of requests by route, method and status
//   - RequestDurationSeconds: Histogram of request latency
//   - InFlightRequests: Gauge of requests being served
//   - ErrorsTotal: Counter of error responses by route and error code
//   - RateLimitedTotal: Counter of requests rejected by the rate limiter
type HTTPMetrics struct {
	// RequestsTotal counts requests.
	// Labels: route (/v1/boards/:id), method (GET), status (200)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures request latency.
	// Labels: route, method
	RequestDurationSeconds *prometheus.HistogramVec

	// InFlightRequests tracks requests currently being served.
	InFlightRequests prometheus.Gauge

	// ErrorsTotal counts error responses.
	// Labels: route, error_code (BOARD_NOT_FOUND, INVALID_BOARD, etc.)
	ErrorsTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests rejected with 429.
	RateLimitedTotal prometheus.Counter
}

// NewHTTPMetrics creates and registers all metrics with reg.
//
// # Inputs
//
//   - reg: Registry to register with. Tests pass prometheus.NewRegistry();
//     the server passes prometheus.DefaultRegisterer.
//
// # Limitations
//
//   - Panics if the metrics are already registered with reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)

	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total number of board API requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),

		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Board API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"route", "method"},
		),

		InFlightRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "in_flight_requests",
				Help:      "Number of board API requests currently being served",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "errors_total",
				Help:      "Total board API error responses by route and error code",
			},
			[]string{"route", "error_code"},
		),

		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "rate_limited_total",
				Help:      "Total requests rejected by the rate limiter",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordError records an error response.
//
// # Inputs
//
//   - route: The matched route template.
//   - code: The error code sent to the client.
func (m *HTTPMetrics) RecordError(route, code string) {
	m.ErrorsTotal.WithLabelValues(routeLabel(route), code).Inc()
}

// RecordRateLimited increments the rate-limited counter.
func (m *HTTPMetrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// Middleware returns gin middleware recording request count, latency and
// in-flight requests. Routes are labeled by template, not raw path, so
// board ids do not explode label cardinality.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlightRequests.Inc()
		defer m.InFlightRequests.Dec()

		c.Next()

		route := routeLabel(c.FullPath())
		m.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDurationSeconds.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// routeLabel maps unmatched requests to a single label value.
func routeLabel(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}
