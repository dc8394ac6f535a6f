package session

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrEntryNotFound is returned by [Storage.Get] when the entry is missing or expired.
var ErrEntryNotFound = errors.New("session entry not found")

// ErrStorageUnavailable wraps backend failures (I/O, network) of a [Storage].
var ErrStorageUnavailable = errors.New("session storage unavailable")

//go:generate mockgen -source=storage.go -destination=mocks/mocks.go -package=mocks Storage

// Storage persists cookie-shaped session entries.
//
// Entries are addressed by name and path scope. Implementations must treat an entry whose
// Expires is in the past, or whose MaxAge is negative, as a deletion, and must never return
// an expired entry from Get.
type Storage interface {
	Get(ctx context.Context, name, path string) (string, error)
	Set(ctx context.Context, entries ...*http.Cookie) error
	Remove(ctx context.Context, path string, names ...string) error
}

// CookieConfig carries the attributes written with every persisted entry.
type CookieConfig struct {
	TTL      time.Duration
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig matches the web client: 7 days, root path, lax, not secure.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		TTL:      7 * 24 * time.Hour,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) normalized() CookieConfig {
	if c.TTL <= 0 {
		c.TTL = 7 * 24 * time.Hour
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

// Entry builds the cookie persisted for name=value at now.
func (c CookieConfig) Entry(name, value string, now time.Time) *http.Cookie {
	c = c.normalized()
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  now.Add(c.TTL).UTC(),
		MaxAge:   int(c.TTL / time.Second),
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// entryTTL reports how long a cookie stays valid from now; a non-positive result means
// the cookie deletes the entry.
func entryTTL(c *http.Cookie, now time.Time) time.Duration {
	switch {
	case c.MaxAge < 0:
		return 0
	case c.MaxAge > 0:
		return time.Duration(c.MaxAge) * time.Second
	case !c.Expires.IsZero():
		return c.Expires.Sub(now)
	default:
		// Session cookie without expiry. Keep it for the default lifetime.
		return DefaultCookieConfig().TTL
	}
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
