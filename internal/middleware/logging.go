package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder wraps http.ResponseWriter to remember the status code
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sr *statusRecorder) WriteHeader(status int) {
	if !sr.written {
		sr.status = status
		sr.written = true
		sr.ResponseWriter.WriteHeader(status)
	}
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

// LoggingMiddleware logs every request once it completes. The level follows
// the outcome: 5xx logs at ERROR, 4xx at WARN, everything else at INFO.
// Query parameters are only included when DEBUG logging is enabled.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"remote_ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if slog.Default().Enabled(r.Context(), slog.LevelDebug) && len(r.URL.Query()) > 0 {
			attrs = append(attrs, "query", r.URL.Query())
		}

		level := slog.LevelInfo
		message := "Request completed"
		switch {
		case rec.status >= 500:
			level = slog.LevelError
			message = "Request failed with error"
		case rec.status >= 400:
			level = slog.LevelWarn
			message = "Request failed"
		}

		slog.Log(r.Context(), level, message, attrs...)
	})
}
