package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GShadowBroker/library-server/repository"
	"github.com/GShadowBroker/library-server/services"
)

func newIdentityFixture(t *testing.T) (*services.AuthService, string) {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	authService := services.NewAuthService(users, "test-secret")

	_, err := authService.Register(context.Background(), "alice", "", "secret", "secret")
	require.NoError(t, err)
	token, err := authService.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	return authService, token.Value
}

func identityProbe(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seenUsername string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := services.CurrentUser(r.Context()); user != nil {
			seenUsername = user.Username
		}
		w.WriteHeader(http.StatusOK)
	})
	return handler, &seenUsername
}

func TestIdentityAnonymousPassesThrough(t *testing.T) {
	authService, _ := newIdentityFixture(t)
	probe, seen := identityProbe(t)
	handler := Identity(authService)(probe)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, *seen)
}

func TestIdentityResolvesBearerToken(t *testing.T) {
	authService, token := newIdentityFixture(t)
	probe, seen := identityProbe(t)
	handler := Identity(authService)(probe)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", *seen)
}

func TestIdentityRejectsBadCredentials(t *testing.T) {
	authService, token := newIdentityFixture(t)

	cases := []struct {
		name   string
		header string
	}{
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"tampered token", "Bearer " + token + "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			probe, seen := identityProbe(t)
			handler := Identity(authService)(probe)

			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			// An invalid credential is an authentication failure, never a
			// silent downgrade to anonymous.
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Empty(t, *seen)
		})
	}
}
