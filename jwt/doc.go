// Package jwt reads and issues the helpdesk's JWT credentials.
//
// The client never verifies tokens; it only needs the exp claim to renew an access
// token before it lapses ([ExpiresAt], [ExpiresWithin]). [Manager] signs and verifies
// access and refresh tokens the way the helpdesk backend does, and backs the in-repo fake
// backend used by tests, examples and the load generator.
package jwt
