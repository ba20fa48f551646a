package logging

import (
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

// redactor masks attribute values by key. Keys match case-insensitively and
// also when they only end in a listed name, so "user.password" and
// "X-Auth-Token" are caught by "password" and "token".
type redactor []string

func newRedactor(keys []string) redactor {
	r := make(redactor, 0, len(keys))

	for _, key := range keys {
		if key = strings.ToLower(strings.TrimSpace(key)); key != "" {
			r = append(r, key)
		}
	}

	return r
}

func (r redactor) match(key string) bool {
	key = strings.ToLower(key)

	for _, name := range r {
		if strings.HasSuffix(key, name) {
			return true
		}
	}

	return false
}

func (r redactor) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindGroup && r.match(a.Key) {
		return slog.String(a.Key, redactedValue)
	}

	return a
}
