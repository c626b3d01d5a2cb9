// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/registry/internal/core"
	"github.com/JonMunkholm/registry/internal/logging"
)

// Logger logs one structured entry per request with its status, size and
// duration. Requests answered with 5xx are logged at error level and 4xx at
// warn level. The request ID and, for authenticated routes, the user ID are
// included.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK, ctx: r.Context()}

		next.ServeHTTP(ww, r.WithContext(withRecorder(r.Context(), ww)))

		duration := time.Since(start)
		logger := logging.FromContext(r.Context())

		level := slog.LevelInfo
		switch {
		case ww.status >= 500:
			level = slog.LevelError
		case ww.status >= 400:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.bytes,
			"duration_ms", duration.Milliseconds(),
			"ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		}
		if u, ok := core.AuthUserFromContext(ww.ctx); ok {
			attrs = append(attrs, "user_id", u.ID.String())
		}
		logger.Log(r.Context(), level, "request", attrs...)
	})
}

// responseWriter captures the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
	ctx         context.Context
}

type recorderKey struct{}

func withRecorder(ctx context.Context, w *responseWriter) context.Context {
	return context.WithValue(ctx, recorderKey{}, w)
}

// NoteContext lets a later middleware hand its enriched context back to
// Logger, so that entries for authenticated requests name the user.
func NoteContext(ctx context.Context) {
	if w, ok := ctx.Value(recorderKey{}).(*responseWriter); ok {
		w.ctx = ctx
	}
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the underlying ResponseWriter to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
