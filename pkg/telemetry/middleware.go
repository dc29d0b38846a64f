package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chatsync/pkg/logger"
	"chatsync/pkg/logging"
)

// slowThreshold bounds what counts as a slow local-surface request. The
// surface is loopback, so anything slower is a stalled collaborator call.
const slowThreshold = 200 * time.Millisecond

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatsync",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Local surface requests by method and status.",
	}, []string{"method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chatsync",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Local surface request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and latency, and logs slow requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())

		if elapsed > slowThreshold {
			logger.Warn("slow_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"elapsed", elapsed.String(),
				"headers", logging.SafeHeaders(r))
		}
	})
}
