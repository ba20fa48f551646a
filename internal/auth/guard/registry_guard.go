package guard

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mkrupp/homecase-postboard/internal/auth/session"
	"github.com/mkrupp/homecase-postboard/internal/auth/token"
	"github.com/mkrupp/homecase-postboard/internal/domain"
)

// RegistryGuard trusts a bearer session id that the session registry still
// knows. Every admitted request slides the session's expiry window forward.
type RegistryGuard struct {
	header   string
	registry session.Registry
	codec    *token.Codec
}

var _ Guard = (*RegistryGuard)(nil)

func NewRegistryGuard(header string, registry session.Registry, codec *token.Codec) *RegistryGuard {
	return &RegistryGuard{header: header, registry: registry, codec: codec}
}

func (g *RegistryGuard) Authenticate(r *http.Request) (domain.Identity, error) {
	sessionID, ok := bearer(r)
	if !ok {
		return domain.Identity{}, domain.ErrNoAuthToken
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(g.header)), 10, 64)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: parse %s: %w", domain.ErrIdentityMismatch, g.header, err)
	}

	tok, err := g.registry.LookupAndRefresh(r.Context(), userID, sessionID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrNoSession, err)
	}

	claims, err := g.codec.Decode(tok)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("decode session token: %w", err)
	}

	if claims.UserID != userID {
		return domain.Identity{}, fmt.Errorf("%w: header %d, token %d", domain.ErrIdentityMismatch, userID, claims.UserID)
	}

	identity := claims.Identity()
	identity.SessionID = sessionID

	return identity, nil
}

func bearer(r *http.Request) (string, bool) {
	scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	value = strings.TrimSpace(value)

	return value, value != ""
}
