package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/registry/internal/core"
)

type stubAuth map[string]core.User

func (s stubAuth) Authenticate(_ context.Context, token string) (core.User, error) {
	u, ok := s[token]
	if !ok {
		return core.User{}, core.ErrUnauthenticated
	}
	return u, nil
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"Bearer":        "",
		"":              "",
		"Token abc def": "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), "header %q", header)
	}
}

func TestBearerAuth(t *testing.T) {
	alice := core.User{ID: uuid.New(), Name: "Alice"}
	auth := stubAuth{"good": alice}

	var failed error
	fail := func(w http.ResponseWriter, _ *http.Request, err error) {
		failed = err
		w.WriteHeader(http.StatusUnauthorized)
	}

	var seen core.User
	var seenToken string
	h := BearerAuth(auth, fail)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = core.AuthUserFromContext(r.Context())
		seenToken = core.AuthTokenFromContext(r.Context())
	}))

	t.Run("missing token", func(t *testing.T) {
		failed = nil
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.ErrorIs(t, failed, core.ErrUnauthenticated)
	})

	t.Run("unknown token", func(t *testing.T) {
		failed = nil
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.ErrorIs(t, failed, core.ErrUnauthenticated)
	})

	t.Run("valid token", func(t *testing.T) {
		failed = nil
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.NoError(t, failed)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, alice.ID, seen.ID)
		assert.Equal(t, "good", seenToken)
	})
}
