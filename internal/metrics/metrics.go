// Package metrics provides Prometheus instrumentation for the wager engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StakesTotal counts accepted stakes, partitioned by market family and side.
	StakesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crickbet_stakes_total",
		Help: "Total number of stakes accepted",
	}, []string{"family", "side"})

	// StakeRejections counts stakes rejected for insufficient funds.
	StakeRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crickbet_stake_rejections_total",
		Help: "Stakes rejected for insufficient balance",
	})

	// SettlementsTotal counts settled markets, partitioned by family.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crickbet_settlements_total",
		Help: "Total number of market settlements",
	}, []string{"family"})

	// PayoutsTotal tracks cumulative points paid out to winners.
	PayoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crickbet_payouts_points_total",
		Help: "Cumulative points credited to winning stakes",
	})

	// OpenMarkets tracks the number of markets accepting stakes.
	OpenMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crickbet_open_markets",
		Help: "Number of currently open markets",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crickbet_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crickbet_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crickbet_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the route surface is small.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
