package middleware

import (
	"net/http"
	"net/url"
)

// Authenticator reports whether a session is currently held.
type Authenticator interface {
	IsAuthenticated() bool
}

// RequireAuth redirects requests to loginRoute?redirect=<original URI> when auth holds no
// session.
func RequireAuth(auth Authenticator, loginRoute string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil || !auth.IsAuthenticated() {
				target := loginRoute + "?" + url.Values{"redirect": {r.URL.RequestURI()}}.Encode()
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGuest redirects requests to homeRoute when auth already holds a session.
func RequireGuest(auth Authenticator, homeRoute string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth != nil && auth.IsAuthenticated() {
				http.Redirect(w, r, homeRoute, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
