package http

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

const defaultRateLimitTTL = 10 * time.Minute

// RateLimitConfig bounds how often a single client may call a limited route.
type RateLimitConfig struct {
	// Rate is the number of requests per second refilled into each client's bucket
	Rate float64 `env:"RATE" default:"1"`
	// Burst is the bucket size
	Burst int `env:"BURST" default:"5"`
	// TTL is how long an idle client's bucket is remembered
	TTL time.Duration `env:"TTL" default:"10m"`
	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For is believed
	TrustedProxies []string `env:"TRUSTED_PROXIES" default:""`
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimitClock replaces the time source.
func WithRateLimitClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	trusted   []netip.Prefix
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*limiterBucket
}

type limiterBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter from cfg. Trusted proxy entries that
// do not parse are logged and ignored, so their requests count as the proxy's.
func NewRateLimiter(cfg RateLimitConfig, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		limit:   rate.Limit(cfg.Rate),
		burst:   cfg.Burst,
		ttl:     cfg.TTL,
		trusted: parseTrustedProxies(cfg.TrustedProxies),
		now:     time.Now,
		entries: make(map[string]*limiterBucket),
	}

	if l.ttl <= 0 {
		l.ttl = defaultRateLimitTTL
	}

	for _, opt := range opts {
		opt(l)
	}

	l.lastSweep = l.now()

	return l
}

func parseTrustedProxies(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))

	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())

			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logging.GetLogger("infra.transport.http").Warn("ignoring invalid trusted proxy", "proxy", entry)

			continue
		}

		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return prefixes
}

// Allow reports whether the client identified by key may proceed.
// Idle buckets are dropped at most once per TTL.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.ttl {
		for k, v := range l.entries {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.entries, k)
			}
		}

		l.lastSweep = now
	}

	b := l.entries[key]
	if b == nil {
		b = &limiterBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = b
	}

	b.lastSeen = now

	return b.lim.AllowN(now, 1)
}

// Key returns the address requests of r are counted against. It is the
// direct peer unless that peer is a trusted proxy, in which case
// X-Forwarded-For is walked from the right and the first untrusted hop wins.
func (l *RateLimiter) Key(r *http.Request) string {
	peer := ClientIP(r)

	addr, err := netip.ParseAddr(peer)
	if err != nil || !l.isTrusted(addr) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")

	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}

		hopAddr, err := netip.ParseAddr(hop)
		if err != nil {
			// Garbage below a trusted hop cannot be attributed; count it
			// against the last proxy that forwarded it.
			return peer
		}

		if !l.isTrusted(hopAddr) {
			return hopAddr.Unmap().String()
		}

		peer = hopAddr.Unmap().String()
	}

	return peer
}

func (l *RateLimiter) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()

	for _, prefix := range l.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

// RateLimitingMiddleware creates middleware that rejects clients exceeding limiter with 429.
func RateLimitingMiddleware(next http.Handler, limiter *RateLimiter, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := limiter.Key(r)
		if !limiter.Allow(key) {
			log.WarnContext(r.Context(), "rate limited", slog.Group("http",
				"uri", r.RequestURI,
				"client", key,
			))

			if limiter.limit > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(1/float64(limiter.limit))+1))
			}

			httperr.Write(w, r, httperr.New(httperr.KindTooManyRequests), log)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the address of the direct peer. Forwarding headers are
// ignored since any client can set them.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}

	return r.RemoteAddr
}
