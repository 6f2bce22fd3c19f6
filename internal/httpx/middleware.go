// Package httpx holds HTTP middleware shared by the service's routers.
package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"rwa-auth/internal/observability/middleware"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// LogRequests writes one access log line per request. Server errors log at
// error level, client errors at warn.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := middleware.StatusOf(ww)
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"trace_id", middleware.TraceIDFromContext(r.Context()),
		)
	})
}
