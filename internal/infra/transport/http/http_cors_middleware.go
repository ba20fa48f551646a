package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig controls which browser origins may call the API with credentials.
type CORSConfig struct {
	// AllowedOrigins lists hosts or host suffixes (".example.com") allowed to send credentialed requests
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" default:"localhost"`

	MaxAge time.Duration `env:"MAX_AGE" default:"1h"`
}

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, HEAD, OPTIONS"
	corsAllowHeaders = "Accept, Accept-Language, Authorization, Content-Language, Content-Type, X-User-ID, " + RequestIDHeader
)

// CORSMiddleware creates middleware that answers preflight requests and
// reflects allowed origins. Requests from other origins pass through without
// CORS headers, so browsers refuse to expose the response.
func CORSMiddleware(next http.Handler, cfg CORSConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !cfg.allows(origin) {
			next.ServeHTTP(w, r)

			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Expose-Headers", RequestIDHeader)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge/time.Second)))
			w.WriteHeader(http.StatusNoContent)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (cfg CORSConfig) allows(origin string) bool {
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}

	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" || host == allowed {
			return true
		}

		if strings.HasPrefix(allowed, ".") && strings.HasSuffix(host, allowed) {
			return true
		}
	}

	return false
}
