package guard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/homecase-postboard/internal/auth/token"
	"github.com/mkrupp/homecase-postboard/internal/domain"
)

// CookieGuard trusts a signed credential presented in a cookie.
// It consults no server-side state, so a credential stays valid until it expires.
type CookieGuard struct {
	name  string
	codec *token.Codec
}

var _ Guard = (*CookieGuard)(nil)

func NewCookieGuard(name string, codec *token.Codec) *CookieGuard {
	return &CookieGuard{name: name, codec: codec}
}

func (g *CookieGuard) Authenticate(r *http.Request) (domain.Identity, error) {
	cookie, err := r.Cookie(g.name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return domain.Identity{}, domain.ErrNoAuthToken
		}

		return domain.Identity{}, fmt.Errorf("read cookie: %w", err)
	}

	if cookie.Value == "" {
		return domain.Identity{}, domain.ErrNoAuthToken
	}

	claims, err := g.codec.Decode(cookie.Value)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("decode cookie: %w", err)
	}

	return claims.Identity(), nil
}
