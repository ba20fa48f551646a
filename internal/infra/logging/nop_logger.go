package logging

import (
	"log/slog"
)

// NewNopLogger returns a logger that drops every record. Services fall back to
// it until Configure was called, tests use it directly.
func NewNopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}
