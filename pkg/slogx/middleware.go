package slogx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/strongbox/pkg/idx"
)

// RedactedSegment replaces secret path segments in request logs.
const RedactedSegment = "[redacted]"

type middlewareOptions struct {
	redact []string
}

// MiddlewareOption tunes HTTPMiddleware.
type MiddlewareOption func(*middlewareOptions)

// WithRedactedPaths hides the path segment that follows each prefix, for
// routes that carry a bearer secret in the URL.
func WithRedactedPaths(prefixes ...string) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.redact = append(o.redact, prefixes...)
	}
}

// HTTPMiddleware attaches a request-scoped logger to the context and logs one
// http_request line per request. Probe traffic is logged at debug.
func HTTPMiddleware(base *slog.Logger, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	var o middlewareOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = idx.New().String()
			}
			rw.Header().Set("X-Request-ID", reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", redactPath(r.URL.Path, o.redact),
				"remote_addr", r.RemoteAddr,
			)
			r = r.WithContext(WithContext(r.Context(), logger))

			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			if isProbe(r.URL.Path) {
				level = slog.LevelDebug
			}
			logger.Log(r.Context(), level, "http_request",
				"status", rw.status,
				"bytes", rw.written,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

func redactPath(path string, prefixes []string) string {
	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(path, p)
		if !ok || rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return p + RedactedSegment + rest[i:]
		}
		return p + RedactedSegment
	}
	return path
}

func isProbe(path string) bool {
	return path == "/livez" || path == "/readyz" || strings.HasPrefix(path, "/swagger/")
}

type responseWriter struct {
	http.ResponseWriter

	status  int
	written int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
