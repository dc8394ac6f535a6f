// Package session holds the client-side authentication state of a goDesk client:
// the access token, the refresh token and the cached display identity.
//
// # Persistence
//
// State lives in memory inside [Store] and is mirrored to a [Storage] backend as three
// cookie-shaped entries (access_token, refresh_token, user). Entries carry the usual cookie
// attributes (expiry, path scope, SameSite, Secure) so that browser-style semantics are
// kept regardless of the backend: [MemoryStorage] for tests and short-lived tools,
// [FileStorage] for CLIs, [RedisStorage] for processes that share one session.
//
// # Architecture boundaries
//
// This package owns the [Session] model, the [Store] and the storage backends. It does NOT
// talk to the helpdesk API, decide when a refresh is needed, or notify users; those
// responsibilities belong to the root client.
//
// # What this package must NOT do
//
//   - Import goDesk, refresh, or jwt (no upward imports).
//   - Return persistence failures from SetAuth/ClearAuth. Writes are fire-and-forget:
//     memory always reflects the last update for the lifetime of the process.
//   - Log raw token values.
package session
