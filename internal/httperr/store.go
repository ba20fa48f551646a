package httperr

import (
	"errors"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

type storeOptions struct {
	kinds       map[domain.ConstraintKind]Kind
	notFoundMsg string
}

// StoreOption adjusts how FromStore classifies a single call site.
type StoreOption func(*storeOptions)

// UniqueAsConflict reports uniqueness violations as 409 instead of 400.
func UniqueAsConflict() StoreOption {
	return func(o *storeOptions) {
		o.kinds[domain.ConstraintUnique] = KindConflict
		o.kinds[domain.ConstraintPrimaryKey] = KindConflict
	}
}

// NotFoundMessage overrides the message used when no record matched.
func NotFoundMessage(msg string) StoreOption {
	return func(o *storeOptions) {
		o.notFoundMsg = msg
	}
}

// constraintKinds maps client-attributable store constraints to outward kinds.
// Constraints missing here are internal.
//
//nolint:gochecknoglobals
var constraintKinds = map[domain.ConstraintKind]Kind{
	domain.ConstraintUnique:     KindBadRequest,
	domain.ConstraintPrimaryKey: KindBadRequest,
	domain.ConstraintForeignKey: KindBadRequest,
	domain.ConstraintNotNull:    KindBadRequest,
	domain.ConstraintCheck:      KindBadRequest,
}

// FromStore classifies an error returned by the record store.
// Known constraint violations keep the store's detail message, missing
// records become 404 and anything else becomes a generic 500.
func FromStore(err error, opts ...StoreOption) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	o := storeOptions{kinds: make(map[domain.ConstraintKind]Kind, len(constraintKinds))}
	for k, v := range constraintKinds {
		o.kinds[k] = v
	}

	for _, opt := range opts {
		opt(&o)
	}

	var constraintErr *domain.ConstraintError
	if errors.As(err, &constraintErr) {
		if kind, ok := o.kinds[constraintErr.Kind]; ok {
			return &Error{Kind: kind, Message: constraintErr.Detail, Err: err}
		}

		return Wrap(KindInternal, err)
	}

	if errors.Is(err, domain.ErrNotFound) {
		e := Wrap(KindNotFound, err)
		if o.notFoundMsg != "" {
			e.Message = o.notFoundMsg
		}

		return e
	}

	return Wrap(KindInternal, err)
}
