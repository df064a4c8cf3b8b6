package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEndpointLabel_CollapsesIDs(t *testing.T) {
	assert.Equal(t,
		"/api/v1/enquiries/{id}",
		EndpointLabel("/api/v1/enquiries/7d6f2a4e-5b1c-4c1e-9f3a-2a6b8c0d1e2f"))
	assert.Equal(t, "/api/v1/enquiries/export", EndpointLabel("/api/v1/enquiries/export"))
}

func TestPrometheusMiddleware_CountsRequests(t *testing.T) {
	handler := PrometheusMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/brew", "418"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/brew", "418")))
}

func TestRecordEnquiryCreated(t *testing.T) {
	before := testutil.ToFloat64(enquiriesCreatedTotal.WithLabelValues("package"))
	RecordEnquiryCreated("package")
	assert.Equal(t, before+1, testutil.ToFloat64(enquiriesCreatedTotal.WithLabelValues("package")))
}
