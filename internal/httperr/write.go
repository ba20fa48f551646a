package httperr

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	"github.com/mkrupp/homecase-postboard/internal/validate"
)

// Body is the JSON shape of every error response.
type Body struct {
	StatusCode int                 `json:"statusCode"`
	Message    string              `json:"message"`
	Location   string              `json:"location,omitempty"`
	Errors     validate.Violations `json:"errors,omitempty"`
}

// Write renders err as a JSON error response. Server-side failures are logged
// with their cause; the client only ever sees the classified message.
func Write(w http.ResponseWriter, r *http.Request, err error, log logging.Logger) {
	e := As(err)
	status := e.Status()

	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed", slog.Group("http",
			"uri", r.RequestURI,
			"method", r.Method,
			"status", status,
		), "error", err)
	} else {
		log.DebugContext(r.Context(), "request rejected", slog.Group("http",
			"uri", r.RequestURI,
			"method", r.Method,
			"status", status,
		), "error", err)
	}

	body := Body{
		StatusCode: status,
		Message:    e.Message,
		Location:   e.Location,
		Errors:     e.Violations,
	}

	if status >= http.StatusInternalServerError {
		body = Body{StatusCode: status, Message: e.Kind.Message()}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.ErrorContext(r.Context(), "encode error body failed", "error", err)
	}
}
