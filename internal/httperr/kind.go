package httperr

import "net/http"

// Kind is the outward classification of a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindPayloadTooLarge
	KindUnprocessableEntity
	KindTooManyRequests
)

//nolint:gochecknoglobals
var kindStatus = map[Kind]int{
	KindInternal:            http.StatusInternalServerError,
	KindBadRequest:          http.StatusBadRequest,
	KindUnauthorized:        http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindNotFound:            http.StatusNotFound,
	KindConflict:            http.StatusConflict,
	KindPayloadTooLarge:     http.StatusRequestEntityTooLarge,
	KindUnprocessableEntity: http.StatusUnprocessableEntity,
	KindTooManyRequests:     http.StatusTooManyRequests,
}

// Status returns the HTTP status code of the kind. Unknown kinds are internal.
func (k Kind) Status() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// Message returns the default outward message of the kind.
func (k Kind) Message() string {
	return http.StatusText(k.Status())
}

func (k Kind) String() string {
	return k.Message()
}
