package flows

import (
	"context"
	"errors"
	"fmt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureExchange
	RefreshFailureEmptyToken
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureNoToken:
		return "no_refresh_token"
	case RefreshFailureExchange:
		return "exchange"
	case RefreshFailureEmptyToken:
		return "empty_token"
	default:
		return "unknown"
	}
}

var (
	// ErrNoRefreshToken is the failure of a refresh attempted without a refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrSessionEnded marks a refresh attempted on an already empty session. The session
	// was ended earlier, so no redirect is issued again.
	ErrSessionEnded = errors.New("session already ended")
)

// RefreshResult carries either the stored grant or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Grant   Grant
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	// Exchange trades a refresh token for a new grant.
	Exchange     func(ctx context.Context, refreshToken string) (Grant, error)
	SessionStore SessionStore
	// Redirect routes the host to re-authenticate. Optional.
	Redirect func(ctx context.Context)
	Warn     func(string, ...any)
}

// RunRefresh exchanges the stored refresh token and updates the session.
//
// Any failure ends the session: the store is cleared and Redirect is invoked before the
// result is returned. A store that is already empty yields ErrSessionEnded and is left
// alone. On success the store holds exactly what the backend issued, keeping
// the previous refresh token when none was reissued.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	refreshToken := deps.SessionStore.RefreshToken()
	if refreshToken == "" && deps.SessionStore.AccessToken() == "" {
		return RefreshResult{
			Failure: RefreshFailureNoToken,
			Err:     fmt.Errorf("%w: %w", ErrNoRefreshToken, ErrSessionEnded),
		}
	}
	if refreshToken == "" {
		return endSession(ctx, deps, RefreshResult{
			Failure: RefreshFailureNoToken,
			Err:     ErrNoRefreshToken,
		})
	}

	grant, err := deps.Exchange(ctx, refreshToken)
	if err != nil {
		return endSession(ctx, deps, RefreshResult{
			Failure: RefreshFailureExchange,
			Err:     err,
		})
	}
	if grant.AccessToken == "" {
		return endSession(ctx, deps, RefreshResult{
			Failure: RefreshFailureEmptyToken,
			Err:     ErrEmptyGrant,
		})
	}

	deps.SessionStore.SetAuth(ctx, grant.AccessToken, grant.RefreshToken, grant.Identity)
	return RefreshResult{
		Failure: RefreshFailureNone,
		Grant:   grant,
	}
}

func endSession(ctx context.Context, deps RefreshDeps, res RefreshResult) RefreshResult {
	if deps.Warn != nil {
		deps.Warn("goDesk: session refresh failed", "failure", res.Failure.String(), "error", res.Err)
	}
	deps.SessionStore.ClearAuth(ctx)
	if deps.Redirect != nil {
		deps.Redirect(ctx)
	}
	return res
}
