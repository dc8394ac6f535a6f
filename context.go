package goDesk

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/goDesk/internal/logctx"
)

type silentContextKey struct{}

// WithoutNotification marks ctx so that failures of requests issued with it are returned
// and logged but not shown to the user. Session-expiry redirects still happen.
func WithoutNotification(ctx context.Context) context.Context {
	return context.WithValue(ctx, silentContextKey{}, true)
}

// WithLogger attaches a request-scoped logger used instead of the Client's logger.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return logctx.Into(ctx, l)
}

func notificationsSuppressed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	silent, _ := ctx.Value(silentContextKey{}).(bool)
	return silent
}
