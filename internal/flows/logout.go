package flows

import "context"

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	// Revoke tells the backend to invalidate the access token. Optional.
	Revoke       func(ctx context.Context, accessToken string) error
	SessionStore SessionStore
	Warn         func(string, ...any)
}

// RunLogout revokes the current session on a best-effort basis and clears it locally.
// The local session is cleared even when revocation fails; the revocation error is
// returned for reporting only.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	var err error
	if token := deps.SessionStore.AccessToken(); token != "" && deps.Revoke != nil {
		err = deps.Revoke(ctx, token)
		if err != nil && deps.Warn != nil {
			deps.Warn("goDesk: revoke failed", "error", err)
		}
	}
	deps.SessionStore.ClearAuth(ctx)
	return err
}
