package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus collectors, registered once at package load.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulse",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests processed, by method and status.",
	}, []string{"method", "status"})

	wsClientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pulse",
		Subsystem: "websocket",
		Name:      "clients",
		Help:      "Currently connected WebSocket clients.",
	})

	wsBroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulse",
		Subsystem: "websocket",
		Name:      "broadcasts_total",
		Help:      "WebSocket broadcasts sent, by event.",
	}, []string{"event"})
)

// observeRequest records a completed HTTP request.
// Paths are deliberately not a label: IDs in URLs would explode cardinality.
func observeRequest(method, _ string, status int) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// observeBroadcast records a WebSocket broadcast.
func observeBroadcast(event string) {
	wsBroadcastsTotal.WithLabelValues(event).Inc()
}

// metricsHandler exposes the Prometheus scrape endpoint.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
