package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

// RescueingMiddleware turns a handler panic into a logged 500 response.
// http.ErrAbortHandler is passed through so the server can drop the connection.
// Nothing is written when the handler already started its response.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			p := recover()
			if p == nil {
				return
			}

			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			log.ErrorContext(r.Context(), "request panic",
				slog.Group("http", "method", r.Method, "uri", r.RequestURI),
				slog.Group("error", "panic", p, "stack", string(debug.Stack())),
			)

			if rec.status == 0 {
				httperr.Write(rec, r, httperr.Wrap(httperr.KindInternal, fmt.Errorf("panic: %v", p)), log)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
