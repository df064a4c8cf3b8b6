package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"method", "endpoint"},
	)

	// Store metrics
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of key/value store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Key/value store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "operation"},
	)

	// Business metrics
	enquiriesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enquiries_created_total",
			Help: "Total number of enquiries submitted",
		},
		[]string{"kind"}, // generic, package, custom
	)

	enquiryStatusUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enquiry_status_updates_total",
			Help: "Total number of enquiry status changes",
		},
		[]string{"status"},
	)

	enquiriesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enquiries_deleted_total",
			Help: "Total number of enquiries deleted",
		},
	)

	enquiryListDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enquiry_list_degraded_total",
			Help: "Total number of enquiry listings served empty because the store failed",
		},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of admin login attempts",
		},
		[]string{"status"}, // success, failure
	)
)

// PrometheusMiddleware creates a middleware that records Prometheus metrics
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		endpoint := EndpointLabel(r.URL.Path)
		statusCode := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, endpoint, statusCode).Inc()
		httpRequestDuration.WithLabelValues(r.Method, endpoint, statusCode).Observe(time.Since(start).Seconds())
		httpResponseSize.WithLabelValues(r.Method, endpoint).Observe(float64(wrapped.size))
	})
}

// EndpointLabel collapses UUID path segments so per-enquiry routes share one
// label value.
func EndpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if _, err := uuid.Parse(seg); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// RecordStoreOperation records one key/value store call
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	storeOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	storeOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordEnquiryCreated records a new enquiry of the given kind
func RecordEnquiryCreated(kind string) {
	enquiriesCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordStatusUpdate records an enquiry moving to status
func RecordStatusUpdate(status string) {
	enquiryStatusUpdatesTotal.WithLabelValues(status).Inc()
}

// RecordEnquiryDeleted records a hard delete
func RecordEnquiryDeleted() {
	enquiriesDeletedTotal.Inc()
}

// RecordListDegraded records a listing served empty after a store failure
func RecordListDegraded() {
	enquiryListDegradedTotal.Inc()
}

// RecordAuthAttempt records an authentication attempt
func RecordAuthAttempt(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	authAttemptsTotal.WithLabelValues(status).Inc()
}
