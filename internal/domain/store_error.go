package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of all "no such record" errors.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable is returned when the record store cannot be reached
	// or no pooled connection became free in time.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ConstraintKind names the integrity rule a store operation violated.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintUnique
	ConstraintPrimaryKey
	ConstraintForeignKey
	ConstraintNotNull
	ConstraintCheck
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintPrimaryKey:
		return "primary key"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintNotNull:
		return "not null"
	case ConstraintCheck:
		return "check"
	default:
		return "none"
	}
}

// ConstraintError reports an integrity violation raised by the record store.
// Detail is the store's own description, e.g. "UNIQUE constraint failed: users.email".
type ConstraintError struct {
	Kind   ConstraintKind
	Detail string
	Err    error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s constraint: %s", e.Kind, e.Detail)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}
