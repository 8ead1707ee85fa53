package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/safeping/relay/backend/internal/service/auth"
	"github.com/safeping/relay/backend/pkg/utils"
)

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

type claimsKey struct{}

// RequireToken rejects requests without a valid token cookie and stores the
// verified claims on the request context.
func RequireToken(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil || cookie.Value == "" {
				utils.RespondError(w, http.StatusUnauthorized, "unauthorized access")
				return
			}
			claims, err := verifier.Verify(cookie.Value)
			if err != nil {
				log.Printf("[auth] rejected token for %s %s: %v", r.Method, r.URL.Path, err)
				utils.RespondError(w, http.StatusUnauthorized, "unauthorized access")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// ClaimsFrom returns the claims stored by RequireToken.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return claims, ok
}
