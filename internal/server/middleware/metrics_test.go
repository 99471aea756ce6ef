package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/deployctl/internal/instrumentation"
)

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		rw := newResponseWriter(httptest.NewRecorder())
		rw.WriteHeader(code)
		assert.Equal(t, code, rw.statusCode)
		assert.True(t, rw.written)
	}
}

func TestResponseWriter_DefaultsTo200(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	_, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rw.statusCode)
}

func TestResponseWriter_OnlyFirstWriteHeaderCounts(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusBadRequest)
	assert.Equal(t, http.StatusAccepted, rw.statusCode)
}

func TestResponseWriter_Unwrap(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := newResponseWriter(recorder)
	assert.Equal(t, recorder, rw.Unwrap())
	rw.Flush()
	assert.True(t, recorder.Flushed)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/mcp", "/mcp"},
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/exports/uat1/checkout", "/exports/:namespace/:deployment"},
		{"/exports/uat1", "/exports/uat1"},
		{"/mcp/abc123xyz890def456", "/mcp/:session"},
		{"/mcp/session_id_12345", "/mcp/:session"},
		{"/api/550e8400-e29b-41d4-a716-446655440000/sub", "/api/:uuid/sub"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.input))
		})
	}
}

func TestHTTPMetrics_NilProvider(t *testing.T) {
	handler := HTTPMetrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestHTTPMetrics_RecordsRequests(t *testing.T) {
	ctx := context.Background()
	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "deployctl-test",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	handler := HTTPMetrics(provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/uat1/checkout", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	scrape := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(scrape.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), `path="/exports/:namespace/:deployment"`)
}
