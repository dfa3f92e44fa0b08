package middleware

import (
	"net/http"
	"strings"

	"github.com/GShadowBroker/library-server/services"
	"github.com/GShadowBroker/library-server/utils/errors"
)

// Identity resolves an optional bearer credential into the current user.
// No Authorization header means an anonymous request and the chain proceeds;
// guarded operations reject those downstream. A malformed, badly signed or
// unresolvable token is an authentication failure here and now, never a
// silent downgrade to anonymous. On success the middleware has performed one
// fresh identity-store read, so the request sees current friend and request
// lists no matter how old the token is.
func Identity(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				WriteError(w, errors.ErrUnauthenticated)
				return
			}
			tokenString := strings.TrimSpace(authHeader[len("bearer "):])

			user, err := authService.Authenticate(r.Context(), tokenString)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := services.WithCurrentUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
