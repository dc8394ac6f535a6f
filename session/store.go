package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Store is the single source of truth for the current session.
//
// Reads are served from memory. SetAuth and ClearAuth update memory first and then persist;
// persistence of successive updates is serialized so the backend always converges to the
// latest in-memory state. Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	current Session

	// persistMu orders backend writes without blocking readers.
	persistMu sync.Mutex

	storage Storage
	cookies CookieConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore constructs a Store over storage. A nil storage keeps the session in memory
// only; a nil logger discards persistence diagnostics.
func NewStore(storage Storage, cookies CookieConfig, logger *slog.Logger) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		storage: storage,
		cookies: cookies.normalized(),
		logger:  logger,
		now:     time.Now,
	}
}

// Initialize replaces the in-memory state with what the storage holds.
//
// Missing or unreadable entries are left absent. A corrupt identity payload is treated as
// no identity. An identity without an access token is dropped, so Identity is never set
// while IsAuthenticated is false. The only error returned is the context's.
func (s *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	access := s.read(ctx, AccessTokenEntry)
	refresh := s.read(ctx, RefreshTokenEntry)

	var identity *Identity
	if raw := s.read(ctx, IdentityEntry); raw != "" && access != "" {
		id, err := DecodeIdentity(raw)
		if err != nil {
			s.logger.DebugContext(ctx, "session: stored identity unreadable", slog.String("error", err.Error()))
		} else {
			identity = id
		}
	}

	s.mu.Lock()
	s.current = Session{
		AccessToken:  access,
		RefreshToken: refresh,
		Identity:     identity,
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) read(ctx context.Context, name string) string {
	val, err := s.storage.Get(ctx, name, s.cookies.Path)
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			s.logger.WarnContext(ctx, "session: storage read failed",
				slog.String("entry", name),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return val
}

// SetAuth records a new credential set. refreshToken is written only when non-empty; an
// empty value keeps the refresh token already held. Without an access token the identity
// is discarded.
func (s *Store) SetAuth(ctx context.Context, accessToken, refreshToken string, identity *Identity) {
	if accessToken == "" {
		identity = nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	now := s.now()

	s.mu.Lock()
	s.current.AccessToken = accessToken
	if refreshToken != "" {
		s.current.RefreshToken = refreshToken
	}
	s.current.Identity = identity.clone()
	s.current.UpdatedAt = now
	s.mu.Unlock()

	entries := s.entriesFor(ctx, accessToken, refreshToken, identity, now)
	if err := s.storage.Set(ctx, entries...); err != nil {
		s.logger.WarnContext(ctx, "session: persist failed", slog.String("error", err.Error()))
	}
}

func (s *Store) entriesFor(ctx context.Context, accessToken, refreshToken string, identity *Identity, now time.Time) []*http.Cookie {
	entries := make([]*http.Cookie, 0, 3)
	if accessToken != "" {
		entries = append(entries, s.cookies.Entry(AccessTokenEntry, accessToken, now))
	} else {
		entries = append(entries, s.expiredEntry(AccessTokenEntry, now))
	}
	if refreshToken != "" {
		entries = append(entries, s.cookies.Entry(RefreshTokenEntry, refreshToken, now))
	}
	if identity != nil {
		raw, err := EncodeIdentity(identity)
		if err != nil {
			s.logger.WarnContext(ctx, "session: identity not encodable", slog.String("error", err.Error()))
		} else {
			entries = append(entries, s.cookies.Entry(IdentityEntry, raw, now))
		}
	} else {
		// An identity entry left over from a previous session must not outlive this one.
		entries = append(entries, s.expiredEntry(IdentityEntry, now))
	}
	return entries
}

// expiredEntry is a deletion in cookie form.
func (s *Store) expiredEntry(name string, now time.Time) *http.Cookie {
	c := s.cookies.Entry(name, "", now)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	return c
}

// ClearAuth drops all credentials from memory and storage. It is safe on an empty store.
func (s *Store) ClearAuth(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	if err := s.storage.Remove(ctx, s.cookies.Path, AccessTokenEntry, RefreshTokenEntry, IdentityEntry); err != nil {
		s.logger.WarnContext(ctx, "session: clear failed", slog.String("error", err.Error()))
	}
}

// IsAuthenticated reports whether an access token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken != ""
}

// AccessToken returns the current access token or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

// RefreshToken returns the current refresh token or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RefreshToken
}

// Identity returns a copy of the cached identity, or nil.
func (s *Store) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Identity.clone()
}

// FullName returns the cached identity's display name, or "".
func (s *Store) FullName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Identity.FullName()
}

// Snapshot returns a copy of the whole session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.current
	out.Identity = s.current.Identity.clone()
	return out
}

// CookieConfig returns the attributes used for persisted entries.
func (s *Store) CookieConfig() CookieConfig {
	return s.cookies
}
