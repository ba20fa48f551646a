// Package token issues and verifies the signed credentials that carry a
// user's claims between requests.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

var (
	// ErrNoSecret is returned when the codec is configured without a signing secret.
	ErrNoSecret = errors.New("no signing secret configured")
	// ErrInvalidToken is returned for any credential that does not verify.
	ErrInvalidToken = domain.ErrInvalidAuthToken
	// ErrTokenExpired is wrapped by ErrInvalidToken when the credential has expired.
	ErrTokenExpired = errors.New("token expired")
)

// Config holds the codec's signing parameters.
type Config struct {
	// Secret is the HMAC key used to sign and verify credentials
	Secret string `env:"SECRET" required:"true"`
	// Lifetime is how long an issued credential stays valid
	Lifetime time.Duration `env:"LIFETIME" default:"24h"`
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// Codec encodes claims into HS256 JWTs and decodes them again.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

type jwtClaims struct {
	UserID int64  `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewCodec creates a Codec from cfg.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}

	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 24 * time.Hour
	}

	codec := &Codec{
		secret:   []byte(cfg.Secret),
		lifetime: cfg.Lifetime,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(codec)
	}

	codec.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(codec.now),
	)

	return codec, nil
}

// Issue creates claims for user valid from now and returns them signed.
func (c *Codec) Issue(user domain.PublicUser) (string, domain.Claims, error) {
	claims := domain.NewClaims(user, c.now(), c.lifetime)

	token, err := c.Encode(claims)
	if err != nil {
		return "", domain.Claims{}, err
	}

	return token, claims, nil
}

// Encode signs claims.
func (c *Codec) Encode(claims domain.Claims) (string, error) {
	//nolint:exhaustruct
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID: claims.UserID,
		Name:   claims.Name,
		Email:  claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Decode verifies token and returns its claims. A credential is expired from
// the second its exp claim names onwards.
func (c *Codec) Decode(token string) (domain.Claims, error) {
	var parsed jwtClaims

	_, err := c.parser.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenExpired)
		}

		return domain.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := domain.Claims{
		UserID:    parsed.UserID,
		Name:      parsed.Name,
		Email:     parsed.Email,
		ExpiresAt: parsed.ExpiresAt.Unix(),
	}

	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Unix()
	}

	if claims.IssuedAt > claims.ExpiresAt {
		return domain.Claims{}, fmt.Errorf("%w: issued after expiry", ErrInvalidToken)
	}

	return claims, nil
}
