package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when claim inspection is requested but the store
// holds no token.
var ErrNoToken = errors.New("no token held")

// TokenClaims decodes the registered claims of the stored token without
// verifying its signature. The client has no signing key and never needs
// one: verification is the authority's job, this is only for reading the
// expiry and subject the authority stamped in.
func (s *Store) TokenClaims() (*jwt.RegisteredClaims, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNoToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenExpiresWithin reports whether the stored token will expire within d.
// It answers false when no token is held, when the token is opaque rather
// than a JWT, or when the authority stamped no expiry.
func (s *Store) TokenExpiresWithin(d time.Duration) bool {
	claims, err := s.TokenClaims()
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < d
}
