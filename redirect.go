package goDesk

import (
	"context"
	"log/slog"
)

// Redirector routes the host application to a screen. The Client calls it with the
// login route when the session ends; it does not navigate by itself.
type Redirector interface {
	Redirect(ctx context.Context, route string)
}

// RedirectFunc adapts a function to [Redirector].
type RedirectFunc func(ctx context.Context, route string)

func (f RedirectFunc) Redirect(ctx context.Context, route string) { f(ctx, route) }

// logRedirector is the default: it only records where the user should go.
type logRedirector struct {
	logger *slog.Logger
}

func (r logRedirector) Redirect(ctx context.Context, route string) {
	r.logger.InfoContext(ctx, "goDesk: re-authentication required", slog.String("route", route))
}
