package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

// statusRecorder remembers the status and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err //nolint:wrapcheck
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

// LoggingMiddleware logs one record per request after the handler returned.
// Server errors are logged at ERROR, client errors at WARN and the rest at INFO.
// The request line alone is logged at DEBUG before the handler runs.
func LoggingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	//nolint:varnamelen
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		log.DebugContext(r.Context(), "request", slog.Group("http",
			"method", r.Method,
			"uri", r.RequestURI,
		))

		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		level := logging.LevelInfo

		switch status := rec.Status(); {
		case status >= http.StatusInternalServerError:
			level = logging.LevelError
		case status >= http.StatusBadRequest:
			level = logging.LevelWarn
		}

		log.Log(r.Context(), level, "response", slog.Group("http",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", rec.Status(),
			"bytes", rec.bytes,
			"duration", time.Since(start),
			"client", ClientIP(r),
		))
	})
}
