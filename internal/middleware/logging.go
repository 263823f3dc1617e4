package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the response status and size for the request log
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
		rec.ResponseWriter.WriteHeader(code)
	}
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// LoggingMiddleware writes one log line per request after it completes.
// 5xx responses log at error, 4xx at warn, everything else at info. Request
// and response bodies are never logged; entry payloads carry filing data and
// uploads are multipart blobs.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		level := slog.LevelInfo
		message := "Request completed"
		switch {
		case status >= 500:
			level = slog.LevelError
			message = "Request failed"
		case status >= 400:
			level = slog.LevelWarn
			message = "Request rejected"
		}

		slog.Log(r.Context(), level, message,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}
