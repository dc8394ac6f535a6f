package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

var unverified = jwt.NewParser()

// ExpiresAt returns the exp claim of tokenStr without verifying the signature.
// The result must only drive client-side scheduling, never authorization.
func ExpiresAt(tokenStr string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := unverified.ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether tokenStr expires before now+window. Unreadable tokens and
// tokens without exp report false; the server is left to reject them.
func ExpiresWithin(tokenStr string, window time.Duration, now time.Time) bool {
	exp, err := ExpiresAt(tokenStr)
	if err != nil {
		return false
	}
	return exp.Before(now.Add(window))
}
