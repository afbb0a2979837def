package backend

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_backend_requests_total",
		Help: "Backend round trips by method and HTTP status (0 = no response).",
	}, []string{"method", "status"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_backend_retries_total",
		Help: "Retry sleeps performed before re-dispatching a transient failure.",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_backend_request_duration_seconds",
		Help:    "Wall-clock duration of single backend round trips.",
		Buckets: prometheus.DefBuckets,
	})
)

func observeRequest(method string, status int, elapsed time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	requestDuration.Observe(elapsed.Seconds())
}

func observeRetry(_ time.Duration) {
	retriesTotal.Inc()
}
