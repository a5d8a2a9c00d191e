package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	totalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailmark",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "code"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mailmark",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	totalErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailmark",
			Name:      "http_errors_total",
			Help:      "Total number of HTTP responses with 5xx codes",
		},
		[]string{"method", "endpoint", "code"},
	)

	searchResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailmark",
			Name:      "search_results_total",
			Help:      "Records returned by search, per engine",
		},
		[]string{"engine"},
	)

	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailmark",
			Name:      "validation_failures_total",
			Help:      "Rejected values, per validation kind",
		},
		[]string{"kind"},
	)

	backendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailmark",
			Name:      "backend_errors_total",
			Help:      "Failed calls to the remote store, per operation",
		},
		[]string{"op"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mailmark",
			Name:      "sessions_active",
			Help:      "Sessions held in the session store",
		},
	)
)

func init() {
	prometheus.MustRegister(totalRequests)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(totalErrors)
	prometheus.MustRegister(searchResults)
	prometheus.MustRegister(validationFailures)
	prometheus.MustRegister(backendErrors)
	prometheus.MustRegister(activeSessions)
}

// SearchResults counts n records returned by engine.
func SearchResults(engine string, n int) {
	searchResults.WithLabelValues(engine).Add(float64(n))
}

// ValidationFailure counts a rejected value of the given kind.
func ValidationFailure(kind string) {
	validationFailures.WithLabelValues(kind).Inc()
}

// BackendError counts a failed remote store call.
func BackendError(op string) {
	backendErrors.WithLabelValues(op).Inc()
}

// ActiveSessions records the current size of the session store.
func ActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts, durations and 5xx responses, labelled
// by route template rather than raw path.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			endpoint := routeTemplate(r)

			codeStr := strconv.Itoa(sw.status)
			totalRequests.WithLabelValues(r.Method, endpoint, codeStr).Inc()
			requestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())

			if sw.status >= 500 {
				totalErrors.WithLabelValues(r.Method, endpoint, codeStr).Inc()
			}
		})
	}
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil || tpl == "" {
		return "unmatched"
	}
	return tpl
}
