package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	namespace = "image_edit"

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Number of generate requests by outcome",
		},
		[]string{"outcome"},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Number of chat completion calls sent upstream",
		},
		[]string{"attempt", "code"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream chat completion latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"attempt"},
	)
)

// Generation outcomes
const (
	OutcomeOK           = "ok"
	OutcomeMock         = "mock"
	OutcomeFallback     = "fallback"
	OutcomeMissingField = "missing_field"
	OutcomeUpstream     = "upstream_error"
	OutcomeServerError  = "server_error"
)

// Upstream attempts
const (
	AttemptPrimary        = "primary"
	AttemptSchemaFallback = "schema_fallback"
)

func HttpRequestsTotal(method, path, code string) {
	httpRequestsTotal.With(prometheus.Labels{
		"method": method,
		"path":   path,
		"code":   code,
	}).Inc()
}

func HttpRequestDuration(method, path string, duration time.Duration) {
	httpRequestDuration.With(prometheus.Labels{
		"method": method,
		"path":   path,
	}).Observe(duration.Seconds())
}

func GenerationsTotal(outcome string) {
	generationsTotal.With(prometheus.Labels{
		"outcome": outcome,
	}).Inc()
}

// UpstreamRequest records one upstream attempt. A zero status means the
// request never got a response.
func UpstreamRequest(attempt string, status int, duration time.Duration) {
	code := "none"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	upstreamRequestsTotal.With(prometheus.Labels{
		"attempt": attempt,
		"code":    code,
	}).Inc()
	upstreamRequestDuration.With(prometheus.Labels{
		"attempt": attempt,
	}).Observe(duration.Seconds())
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		path := routeLabel(r)
		HttpRequestsTotal(r.Method, path, http.StatusText(ww.status))
		HttpRequestDuration(r.Method, path, duration)
	})
}

// routeLabel keeps the path label bounded: the matched chi pattern, or
// "unmatched" for requests no route handled.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return "unmatched"
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
