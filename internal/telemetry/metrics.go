/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ArbiterTicksTotal counts schedule arbiter poll ticks.
	ArbiterTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ambientfm_arbiter_ticks_total",
		Help: "Total schedule arbiter poll ticks.",
	})

	// ScheduleTransitionsTotal counts arbiter state transitions by direction.
	ScheduleTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambientfm_schedule_transitions_total",
		Help: "Total schedule activations and releases.",
	}, []string{"tenant", "direction"})

	// PlaybackSkipsTotal counts automatic advances caused by playback errors.
	PlaybackSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambientfm_playback_skips_total",
		Help: "Total tracks skipped due to playback errors.",
	}, []string{"tenant"})

	// ResolverFailuresTotal counts failed queue materializations by source.
	ResolverFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambientfm_resolver_failures_total",
		Help: "Total failed play queue loads.",
	}, []string{"tenant", "source"})

	// QueueSize reports the size of the materialized play queue.
	QueueSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ambientfm_queue_size",
		Help: "Current materialized play queue size.",
	}, []string{"tenant"})

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambientfm_api_requests_total",
		Help: "Total HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ambientfm_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ambientfm_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// APIWebSocketConnections gauges open event stream connections.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ambientfm_api_websocket_connections",
		Help: "Open event WebSocket connections.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
