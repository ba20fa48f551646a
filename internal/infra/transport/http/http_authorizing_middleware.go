package http

import (
	"net/http"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/httperr"
	context_ "github.com/mkrupp/homecase-postboard/internal/infra/context"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

// Authenticator establishes who is making a request.
type Authenticator interface {
	Authenticate(r *http.Request) (domain.Identity, error)
}

// AuthorizingMiddleware creates middleware that admits only authenticated requests.
// Every rejection is the same 401 response regardless of its cause, which is logged.
// On success, the identity is added to the request context.
func AuthorizingMiddleware(
	next http.Handler,
	authenticator Authenticator,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := authenticator.Authenticate(r)
		if err != nil {
			log.WarnContext(r.Context(), "authentication failed", "error", err)
			httperr.Write(w, r, httperr.Wrap(httperr.KindUnauthorized, err), log)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithIdentity(r.Context(), identity)))
	})
}
