package logging

import (
	"context"
	"log/slog"

	context_ "github.com/mkrupp/homecase-postboard/internal/infra/context"
)

// ContextHandler decorates records with request-scoped values. The request ID
// is always added when present, the user ID only after a guard admitted the
// request.
type ContextHandler struct {
	h slog.Handler
}

var _ slog.Handler = (*ContextHandler)(nil)

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{h: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := context_.RequestIDFromContext(ctx); ok {
		r.AddAttrs(slog.Group("request", slog.String("id", id)))
	}

	if identity, ok := context_.IdentityFromContext(ctx); ok {
		r.AddAttrs(slog.Group("user", slog.Int64("id", identity.UserID)))
	}

	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) Handler {
	return NewContextHandler(h.h.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) Handler {
	return NewContextHandler(h.h.WithGroup(name))
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}
