// Package validate provides the rule helpers request targets compose in
// their Validate methods. Every rule reports at most one violation; a target
// runs all of its rules and returns the full list.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

//nolint:gochecknoglobals
var reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Violation is a single failed rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Violations is the aggregated result of validating a target.
type Violations []Violation

// Target is implemented by every request structure an extractor produces.
type Target interface {
	Validate() Violations
}

// Collect keeps the failed rules out of checks, in order.
func Collect(checks ...*Violation) Violations {
	var out Violations

	for _, check := range checks {
		if check != nil {
			out = append(out, *check)
		}
	}

	return out
}

// OK reports whether no rule failed.
func (vs Violations) OK() bool {
	return len(vs) == 0
}

func (vs Violations) String() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}

	return strings.Join(parts, ", ")
}

func fail(field, format string, args ...any) *Violation {
	return &Violation{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Required fails when value is empty.
func Required(field, value string) *Violation {
	if value == "" {
		return fail(field, "must not be empty")
	}

	return nil
}

// MinLength fails when value holds fewer than n characters.
func MinLength(field, value string, n int) *Violation {
	if utf8.RuneCountInString(value) < n {
		return fail(field, "must be at least %d characters long", n)
	}

	return nil
}

// MaxLength fails when value holds more than n characters.
func MaxLength(field, value string, n int) *Violation {
	if utf8.RuneCountInString(value) > n {
		return fail(field, "must be at most %d characters long", n)
	}

	return nil
}

// Email fails unless value looks like a mail address.
func Email(field, value string) *Violation {
	if !reEmail.MatchString(value) {
		return fail(field, "must be a valid email address")
	}

	return nil
}

// Min fails when value is below n.
func Min(field string, value, n int64) *Violation {
	if value < n {
		return fail(field, "must be at least %d", n)
	}

	return nil
}

// OneOf fails unless value is one of allowed.
func OneOf[T ~string](field string, value T, allowed ...T) *Violation {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}

	return fail(field, "must be one of %s", strings.Join(names, ", "))
}

// Optional runs rule only when value is set.
func Optional[T any](value *T, rule func(T) *Violation) *Violation {
	if value == nil {
		return nil
	}

	return rule(*value)
}
