package context

import (
	"context"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

const contextKeyIdentity = contextKey("identity")

// IdentityFromContext extracts the authenticated identity from the context.
// Returns the identity and true if a guard admitted the request, or the zero value and false if not.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(domain.Identity)

	return identity, ok
}

// WithIdentity creates a new context carrying the authenticated identity.
// Only trust guards call this.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}
