package server

import (
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/san-kum/leadlag/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LogRequest tags each request with a correlation id, stores a request
// scoped logger in the context and logs completion with latency.
func LogRequest(log logr.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		reqLog := log.WithValues("request_id", requestID, "method", r.Method, "path", r.URL.Path)
		reqLog.V(logging.DEBUG).Info("request started")

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(logging.IntoContext(r.Context(), reqLog)))

		reqLog.Info("request completed",
			"status", wrapped.statusCode,
			"latency_ms", time.Since(start).Milliseconds())
	})
}
