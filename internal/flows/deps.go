package flows

import (
	"context"

	"github.com/MrEthical07/goDesk/session"
)

// Deps groups flow dependency sets. The root client builds this once and delegates to the
// matching flow implementation.
type Deps struct {
	Refresh RefreshDeps
	Logout  LogoutDeps
}

// SessionStore is the slice of [session.Store] the flows need.
type SessionStore interface {
	RefreshToken() string
	AccessToken() string
	SetAuth(ctx context.Context, accessToken, refreshToken string, identity *session.Identity)
	ClearAuth(ctx context.Context)
}

// Grant is a credential set issued by the backend on login, registration or refresh.
type Grant struct {
	AccessToken  string
	RefreshToken string
	Identity     *session.Identity
}
