package http

import (
	"net/http"

	"github.com/google/uuid"

	context_ "github.com/mkrupp/homecase-postboard/internal/infra/context"
	"github.com/mkrupp/homecase-postboard/internal/util/encoding"
)

const (
	RequestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 128
)

// RequestIDMiddleware tags every request with an ID, taken from the
// X-Request-ID header when the client sent a usable one. The ID is stored in
// the request context and echoed on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = newRequestID()
		}

		if id != "" {
			w.Header().Set(RequestIDHeader, id)
		}

		next.ServeHTTP(w, r.WithContext(context_.WithRequestID(r.Context(), id)))
	})
}

// validRequestID rejects IDs that would garble log output or response headers.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}

	for i := range len(id) {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}

	return true
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}

	return encoding.EncodeCrockfordB32LC(id[:])
}
