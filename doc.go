// Package goDesk provides the authenticated HTTP client of a helpdesk application: a
// persistent session store and a transport that keeps that session alive.
//
// Every request made through [Client] carries the current access token. When the backend
// answers 401, exactly one token refresh runs no matter how many requests failed at the
// same time; the others wait for it and are replayed with the renewed token. A failed
// refresh ends the session, sends the host to its login route and surfaces
// [ErrSessionExpired] to every waiting request.
//
// Client methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goDesk is the public surface. It exposes [Client], [Builder], [Config], [RequestError]
// and value types (Notification, MetricsSnapshot, AuthResponse). Session persistence lives
// in the session package, refresh coordination in the refresh package, and flow
// orchestration under internal/.
//
// # What this package must NOT do
//
//   - Navigate by itself. Redirects go through the host's [Redirector].
//   - Perform I/O during [Builder.Build]; the session is read by [Client.Initialize].
//   - Retry a request more than once, or refresh on behalf of login and registration calls.
//   - Import any sub-package that re-imports goDesk (no import cycles).
package goDesk
