package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/giantswarm/deployctl/internal/instrumentation"
)

// responseWriter captures the status code written by the next handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader records the first status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush keeps streamable HTTP responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMetrics records request count and duration per method, normalized
// path and status. A nil or disabled provider makes it a pass-through.
func HTTPMetrics(provider *instrumentation.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !provider.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			provider.Metrics().RecordHTTPRequest(r.Context(), r.Method, normalizePath(r.URL.Path),
				wrapped.statusCode, time.Since(start))
		})
	}
}

var (
	exportPathPattern = regexp.MustCompile(`^/exports/[^/]+/[^/]+$`)
	sessionIDPattern  = regexp.MustCompile(`^/mcp/[a-zA-Z0-9_-]{8,64}$`)
	uuidPattern       = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// normalizePath bounds the path label cardinality: export downloads and
// MCP sessions collapse to one route each.
func normalizePath(path string) string {
	switch {
	case exportPathPattern.MatchString(path):
		return "/exports/:namespace/:deployment"
	case sessionIDPattern.MatchString(path):
		return "/mcp/:session"
	}
	return uuidPattern.ReplaceAllString(path, ":uuid")
}
