// Package middleware exposes HTTP middleware for goDesk applications.
//
// # Route guards
//
//   - [RequireAuth] sends visitors without a session to the login route, remembering
//     where they were going.
//   - [RequireGuest] sends users who already hold a session away from login and
//     registration pages.
//
// Both only ask an [Authenticator] (satisfied by *goDesk.Client) whether a session is
// held. They never call the backend.
//
// # Bearer guards
//
//   - [RequireBearer] verifies an access token signature and expiry, no store lookup.
//   - [RequireBearerStrict] additionally rejects tokens reported revoked.
//
// Bearer guards answer failures with the backend error shape
// {"success":false,"error":...,"code":...} and a 401 status, which is what the goDesk
// transport reacts to.
//
// # What this package must NOT do
//
//   - Refresh tokens. Renewal belongs to the client transport.
//   - Issue tokens (delegates parsing to the jwt package).
package middleware
