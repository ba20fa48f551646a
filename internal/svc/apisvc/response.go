package apisvc

import (
	"encoding/json"
	"net/http"

	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

// Response is the JSON envelope of every successful response.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, message string, data any, log logging.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(Response{
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
	}); err != nil {
		log.ErrorContext(r.Context(), "encode response failed", "error", err)
	}
}

func writeOK(w http.ResponseWriter, r *http.Request, data any, log logging.Logger) {
	writeJSON(w, r, "success", data, log)
}
