package extract

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/infra/config"
)

// Path binds the path wildcards named by `path` struct tags into T and validates it.
func Path[T any, PT Target[T]](r *http.Request) (T, error) {
	var value T

	err := bind(&value, "path", func(name string) (string, bool) {
		raw := r.PathValue(name)

		return raw, raw != ""
	})
	if err != nil {
		return value, err
	}

	return check[T, PT](value)
}

// Query binds the query parameters named by `query` struct tags into T and validates it.
// A parameter given without a value, as in "?thoroughly", sets a bool field to true.
func Query[T any, PT Target[T]](r *http.Request) (T, error) {
	var value T

	query := r.URL.Query()

	err := bind(&value, "query", func(name string) (string, bool) {
		values, ok := query[name]
		if !ok || len(values) == 0 {
			return "", false
		}

		return values[0], true
	})
	if err != nil {
		return value, err
	}

	return check[T, PT](value)
}

// bind sets every field of target carrying tag from lookup. Missing path
// segments fail; missing query parameters leave the field at its zero value.
func bind(target any, tag string, lookup func(name string) (string, bool)) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)

		name := field.Tag.Get(tag)
		if name == "" {
			continue
		}

		raw, ok := lookup(name)
		if !ok {
			if tag == "path" {
				return httperr.Newf(httperr.KindBadRequest, "Missing path parameter `%s`", name).
					WithLocation(name)
			}

			continue
		}

		if raw == "" && isBool(field.Type) {
			raw = "true"
		}

		if err := config.Assign(v.Field(i), raw); err != nil {
			return &httperr.Error{
				Kind:     httperr.KindBadRequest,
				Message:  fmt.Sprintf("Cannot parse `%s` with value `%s` to a `%s`", name, raw, field.Type),
				Location: name,
				Err:      err,
			}
		}
	}

	return nil
}

func isBool(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.Kind() == reflect.Bool
}
