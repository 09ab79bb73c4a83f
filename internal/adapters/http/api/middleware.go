package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/winstate/pkg/metrics"
)

// errorCoder is implemented by writers that keep the code of the error
// body written through them.
type errorCoder interface {
	setErrorCode(code string)
}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
// Failed requests are labelled with the error code of the response body
// (invalid_input, not_found, storage_unavailable, ...), or with a class
// derived from the status when the handler wrote no error body.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		durationMs := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(rw.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)

		if rw.statusCode < http.StatusBadRequest {
			return
		}
		kind := rw.errorCode
		if kind == "" {
			kind = statusErrorType(rw.statusCode)
		}
		metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
		metrics.RecordErrorByType(kind, errorSeverity(rw.statusCode))
		metrics.RecordErrorLatency("http", kind, durationMs)
		if rw.statusCode >= http.StatusInternalServerError {
			metrics.RecordErrorByComponent("api", kind)
		}
	}
}

// statusErrorType classifies a failed status that carries no error code.
func statusErrorType(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

func errorSeverity(status int) string {
	if status >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}

// responseWriter captures the status and error code of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	errorCode  string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) setErrorCode(code string) {
	rw.errorCode = code
}
