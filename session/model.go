package session

import (
	"strings"
	"time"
)

// Entry names used for the persisted session.
const (
	AccessTokenEntry  = "access_token"
	RefreshTokenEntry = "refresh_token"
	IdentityEntry     = "user"
)

// Identity is the display profile returned by login, registration and refresh.
// It is cached for UI use only and never treated as authoritative.
type Identity struct {
	Name     string `json:"name"`
	LastName string `json:"lastname"`
	Email    string `json:"email"`
}

// FullName joins name and last name the way the UI header shows it.
func (i *Identity) FullName() string {
	if i == nil {
		return ""
	}
	return strings.TrimSpace(i.Name + " " + i.LastName)
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Session is a point-in-time copy of the authentication state.
//
// An empty AccessToken or RefreshToken means the credential is absent. Identity is
// non-nil only when it was written together with an access token.
type Session struct {
	AccessToken  string
	RefreshToken string
	Identity     *Identity

	// UpdatedAt is the time of the last SetAuth, zero after ClearAuth or when the state
	// was rehydrated from storage.
	UpdatedAt time.Time
}

// IsAuthenticated reports whether an access token is present.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}
