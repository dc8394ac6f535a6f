package goDesk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/goDesk/internal/flows"
	"github.com/MrEthical07/goDesk/internal/logctx"
	"github.com/MrEthical07/goDesk/internal/redact"
	"github.com/MrEthical07/goDesk/session"
)

// Login authenticates with email and password and stores the issued session.
//
// Failures are returned as [*RequestError] and are never shown to the user by the
// Client; the caller owns the login screen's error display.
//
//	Flow: POST Auth.LoginPath -> store token, refresh token and identity.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*session.Identity, error) {
	out, err := c.authenticate(ctx, c.config.Auth.LoginPath, req)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.authLogger(ctx).WarnContext(ctx, "goDesk: login failed",
			slog.String("email", redact.Email(req.Email)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	c.metrics.Inc(MetricLoginSuccess)
	c.authLogger(ctx).InfoContext(ctx, "goDesk: login succeeded", slog.String("email", redact.Email(req.Email)))
	return out, nil
}

// Register creates an account and stores the issued session, exactly like Login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*session.Identity, error) {
	out, err := c.authenticate(ctx, c.config.Auth.RegisterPath, req)
	if err != nil {
		c.metrics.Inc(MetricRegisterFailure)
		c.authLogger(ctx).WarnContext(ctx, "goDesk: registration failed",
			slog.String("email", redact.Email(req.Email)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	c.metrics.Inc(MetricRegisterSuccess)
	return out, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*session.Identity, error) {
	var resp AuthResponse
	if err := c.DoJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	grant := flows.Grant{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		Identity:     resp.Identity(),
	}
	if err := flows.RunGrant(ctx, c.store, grant); err != nil {
		return nil, &RequestError{
			Message: MessageFallback,
			Status:  http.StatusOK,
			Method:  http.MethodPost,
			URL:     c.resolve(path),
			kind:    ErrRequestFailed,
			cause:   err,
		}
	}
	return grant.Identity, nil
}

// RefreshSession renews the access token now, joining a refresh already in flight.
//
// A failure ends the session exactly like a rejected refresh during a request: the store
// is cleared, the Redirector is sent to the login route and a [*RequestError] wrapping
// ErrSessionExpired is returned.
func (c *Client) RefreshSession(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	cl := &call{
		method: http.MethodPost,
		url:    c.resolve(c.config.Auth.RefreshPath),
		path:   c.config.Auth.RefreshPath,
		header: http.Header{},
	}
	_, role, err := c.coordinator.Do(ctx, c.store.AccessToken(), c.runRefresh)
	if err != nil {
		return c.refreshFailed(ctx, cl, role, err)
	}
	return nil
}

// Logout revokes the session on the backend when possible and always clears it locally.
// The revoke error, if any, is returned for reporting; the session is gone either way.
func (c *Client) Logout(ctx context.Context) error {
	c.metrics.Inc(MetricLogout)
	err := flows.RunLogout(ctx, c.flows.Logout)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// revoke posts the access token outside the pipeline so a 401 never triggers a refresh
// during logout.
func (c *Client) revoke(ctx context.Context, accessToken string) error {
	cl, err := c.newCall(http.MethodPost, c.config.Auth.RevokePath, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, cl, "Bearer "+accessToken)
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		eb := parseErrorBody(resp.Body)
		return fmt.Errorf("revoke rejected with status %d: %s", resp.StatusCode, firstNonEmpty(eb.Error, eb.Message, http.StatusText(resp.StatusCode)))
	}
	return nil
}

func (c *Client) authLogger(ctx context.Context) *slog.Logger {
	return logctx.FromOr(ctx, c.logger)
}
