package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/goDesk/jwt"
)

// TokenParser verifies a token of the given kind. *jwt.Manager satisfies it.
type TokenParser interface {
	Parse(token string, kind jwt.Kind) (*jwt.Claims, error)
}

// RevocationChecker reports whether a verified token was revoked before its expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, claims *jwt.Claims) (bool, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the access claims injected by a bearer guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok
}

// RequireBearer returns middleware that accepts requests carrying a valid access token.
//
//	Docs: docs/middleware.md
func RequireBearer(parser TokenParser) func(http.Handler) http.Handler {
	return guard(parser, nil)
}

// RequireBearerStrict is RequireBearer that also rejects tokens revoked through checker.
// A checker failure rejects the request.
func RequireBearerStrict(parser TokenParser, checker RevocationChecker) func(http.Handler) http.Handler {
	return guard(parser, checker)
}

func guard(parser TokenParser, checker RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parser == nil {
				unauthorized(w, "Unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "Authorization header required")
				return
			}

			claims, err := parser.Parse(token, jwt.KindAccess)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			if checker != nil {
				revoked, err := checker.IsRevoked(r.Context(), claims)
				if err != nil || revoked {
					unauthorized(w, "Token has been revoked")
					return
				}
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
		"code":    "UNAUTHORIZED",
	})
}
