package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geoposts_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoposts_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	// CascadeFailures - сбои каскадного удаления комментариев после удаления поста.
	// Такие сбои не возвращаются клиенту, поэтому их видно только здесь и в логах.
	CascadeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geoposts_comment_cascade_failures_total",
			Help: "Total number of failed comment cascades after post deletion",
		},
	)

	LikeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoposts_like_operations_total",
			Help: "Total number of like/unlike operations",
		},
		[]string{"target", "action", "result"}, // target: post|comment, action: like|unlike
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoposts_storage_errors_total",
			Help: "Total number of unexpected storage errors",
		},
		[]string{"operation"},
	)
)

// RecordLike учитывает операцию с лайком.
func RecordLike(target, action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LikeOperations.WithLabelValues(target, action, result).Inc()
}

// Middleware записывает длительность запроса по шаблону маршрута chi,
// чтобы id в пути не раздували кардинальность.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap нужен http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack нужен websocket апгрейду ленты комментариев.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
