// Package extract turns raw request input into validated request structures.
// Every extractor parses first and validates second; a payload that fails to
// parse never reaches its Validate method.
package extract

import (
	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/validate"
)

// Target is the pointer constraint shared by all extractors.
type Target[T any] interface {
	*T
	validate.Target
}

func check[T any, PT Target[T]](value T) (T, error) {
	if violations := PT(&value).Validate(); !violations.OK() {
		var zero T

		return zero, httperr.Validation(violations)
	}

	return value, nil
}
