package domain

import (
	"errors"
	"time"
)

var (
	// ErrNoAuthToken is returned when a credential is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a credential's signature is invalid or it has expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
	// ErrNoSession is returned when the session registry holds no live entry for a credential.
	ErrNoSession = errors.New("no active session")
	// ErrIdentityMismatch is returned when the identity hint disagrees with the credential.
	ErrIdentityMismatch = errors.New("identity mismatch")
)

// Claims is the signed payload of a session credential.
// Timestamps are unix seconds; sub-second precision never crosses the codec.
type Claims struct {
	UserID    int64  `json:"uid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// NewClaims builds claims for user issued at now and valid for lifetime.
func NewClaims(user PublicUser, now time.Time, lifetime time.Duration) Claims {
	iat := now.Unix()

	return Claims{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		IssuedAt:  iat,
		ExpiresAt: iat + int64(lifetime/time.Second),
	}
}

// Identity returns the trusted request identity described by the claims.
func (c Claims) Identity() Identity {
	return Identity{
		UserID:    c.UserID,
		Name:      c.Name,
		Email:     c.Email,
		ExpiresAt: c.ExpiresAt,
	}
}

// Identity is who is making the current request. It only ever comes from a guard.
type Identity struct {
	UserID    int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"`
	SessionID string `json:"-"`
}

// AuthTokenResponse is returned after a credential has been issued.
type AuthTokenResponse struct {
	User      PublicUser `json:"user"`
	Token     string     `json:"token"`
	SessionID string     `json:"sessionId"`
	ExpiresAt int64      `json:"expiresAt"`
}
