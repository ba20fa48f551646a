package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/mkrupp/homecase-postboard/internal/httperr"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Body decodes the JSON request body into T and validates it.
// Unknown fields are rejected. An empty body decodes to the zero value of T,
// which is valid whenever all of T's fields are optional.
func Body[T any, PT Target[T]](r *http.Request, maxBytes int64) (T, error) {
	var value T

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	if r.Body == nil || r.Body == http.NoBody {
		return check[T, PT](value)
	}

	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return value, httperr.Newf(httperr.KindPayloadTooLarge,
				"Request body exceeds the limit of %d bytes", maxBytesErr.Limit)
		}

		return value, httperr.Wrap(httperr.KindBadRequest, fmt.Errorf("read body: %w", err))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return check[T, PT](value)
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err != nil || !isJSON(mediaType) {
			return value, httperr.Newf(httperr.KindBadRequest,
				"Expected request with `Content-Type: application/json`")
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&value); err != nil {
		return value, bodyError(err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return value, httperr.Newf(httperr.KindBadRequest,
			"Failed to parse the request body as JSON: trailing data after value")
	}

	return check[T, PT](value)
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func bodyError(err error) *httperr.Error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &syntaxErr):
		return httperr.Newf(httperr.KindBadRequest,
			"Failed to parse the request body as JSON: %v", syntaxErr)
	case errors.As(err, &typeErr):
		e := httperr.Newf(httperr.KindBadRequest,
			"Failed to deserialize the JSON body into the target type: expected %s but got %s",
			typeErr.Type, typeErr.Value)
		if typeErr.Field != "" {
			return e.WithLocation(typeErr.Field)
		}

		return e
	case errors.Is(err, io.ErrUnexpectedEOF):
		return httperr.Newf(httperr.KindBadRequest,
			"Failed to parse the request body as JSON: unexpected end of input")
	}

	// encoding/json reports unknown fields only as text
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		field = strings.Trim(field, `"`)

		return httperr.Newf(httperr.KindBadRequest,
			"Failed to deserialize the JSON body into the target type: unknown field `%s`", field).
			WithLocation(field)
	}

	return httperr.Newf(httperr.KindBadRequest, "Failed to parse the request body as JSON: %v", err)
}
