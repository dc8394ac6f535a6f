package flows

import (
	"context"
	"errors"
)

// ErrEmptyGrant is returned when the backend answered successfully without an access token.
var ErrEmptyGrant = errors.New("backend issued no access token")

// RunGrant stores a login or registration grant. An existing session is replaced.
func RunGrant(ctx context.Context, store SessionStore, grant Grant) error {
	if grant.AccessToken == "" {
		return ErrEmptyGrant
	}
	store.SetAuth(ctx, grant.AccessToken, grant.RefreshToken, grant.Identity)
	return nil
}
