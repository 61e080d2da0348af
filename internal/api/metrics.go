package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "markereditor_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "status"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "markereditor_http_requests_total",
		Help: "HTTP requests served, by route and status class.",
	}, []string{"path", "status"})
)

func observeRequest(path string, status int, elapsed time.Duration) {
	statusClass := strconv.Itoa(status/100) + "xx"
	requestDuration.WithLabelValues(path, statusClass).Observe(elapsed.Seconds())
	requestsTotal.WithLabelValues(path, statusClass).Inc()
}

// MetricsHandler exposes the registered collectors for a Prometheus scrape.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
