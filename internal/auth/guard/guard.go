// Package guard decides whether a request carries a trustworthy credential.
// Two strategies exist: a stateless signed cookie, and a bearer session id
// checked against the session registry. One is chosen when the router is built.
package guard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/homecase-postboard/internal/auth/session"
	"github.com/mkrupp/homecase-postboard/internal/auth/token"
	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	transport "github.com/mkrupp/homecase-postboard/internal/infra/transport/http"
)

const (
	StrategyCookie   = "cookie"
	StrategyRegistry = "registry"
)

// ErrUnknownStrategy is returned by New for an unsupported strategy name.
var ErrUnknownStrategy = errors.New("unknown guard strategy")

// Guard establishes the identity behind a request or fails.
type Guard interface {
	Authenticate(r *http.Request) (domain.Identity, error)
}

// Config selects and parameterizes the guard.
type Config struct {
	// Strategy is either "cookie" or "registry"
	Strategy string `env:"STRATEGY" default:"registry"`
	// CookieName names the cookie carrying the credential
	CookieName string `env:"COOKIE_NAME" default:"app_auth_key"`
	// IdentityHeader names the header carrying the claimed user id
	IdentityHeader string `env:"IDENTITY_HEADER" default:"X-User-ID"`
}

// New returns the guard configured by cfg.Strategy.
func New(cfg Config, codec *token.Codec, registry session.Registry) (Guard, error) {
	switch cfg.Strategy {
	case StrategyCookie:
		return NewCookieGuard(cfg.CookieName, codec), nil
	case StrategyRegistry:
		return NewRegistryGuard(cfg.IdentityHeader, registry, codec), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// Require wraps handlers so they only run for requests g admits. Every
// rejection is the same 401 Unauthorized, whatever the cause.
func Require(g Guard, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return transport.AuthorizingMiddleware(next, g, log)
	}
}
