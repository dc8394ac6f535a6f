// Package deskfake is an in-process helpdesk backend for tests, examples and the load
// generator.
//
// It serves the auth endpoints (/auth/login, /auth/register, /auth/refresh,
// /auth/revoke) with the backend's raw AuthResponse shape, and a small protected API
// (/tickets, /articles, /categories, /me) wrapped in the {"success","data"} envelope.
// Access tokens are HS256 JWTs issued by the jwt package; refresh tokens rotate on every
// refresh.
//
// Knobs let tests shape the refresh endpoint: a delay, a forced failure status, and
// whether refresh tokens are reissued. Every refresh call is counted.
package deskfake
