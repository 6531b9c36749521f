package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/errutil"
	"github.com/redmonkez12/natours-api/internal/user"
)

func requestWithBearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func requestWithCookie(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	return r
}

func TestGuard_Protect(t *testing.T) {
	env := newTestEnv(t)
	created := env.signup(t, "jonas@example.com", "test1234", "")

	t.Run("bearer header", func(t *testing.T) {
		account, claims, err := env.guard.Protect(requestWithBearer(created.Token))
		require.NoError(t, err)
		assert.Equal(t, created.Account.ID, account.ID)
		assert.Equal(t, created.Account.ID, claims.SubjectID)
	})

	t.Run("cookie", func(t *testing.T) {
		account, _, err := env.guard.Protect(requestWithCookie(created.Token))
		require.NoError(t, err)
		assert.Equal(t, created.Account.ID, account.ID)
	})

	t.Run("header takes priority over cookie", func(t *testing.T) {
		r := requestWithBearer("garbage")
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: created.Token})
		_, _, err := env.guard.Protect(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("non-bearer header falls back to cookie", func(t *testing.T) {
		r := requestWithCookie(created.Token)
		r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		_, _, err := env.guard.Protect(r)
		assert.NoError(t, err)
	})
}

func TestGuard_ProtectRejections(t *testing.T) {
	env := newTestEnv(t)
	created := env.signup(t, "jonas@example.com", "test1234", "")

	ghostToken, _, err := env.tokens.Issue(unknownID())
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    *http.Request
		reason string
	}{
		{"no token", httptest.NewRequest(http.MethodGet, "/", nil), "missing_token"},
		{"garbage token", requestWithBearer("garbage"), "invalid_token"},
		{"logged out cookie", requestWithCookie("loggedout"), "invalid_token"},
		{"account missing", requestWithBearer(ghostToken), "account_missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, claims, err := env.guard.Protect(tt.req)
			assert.Nil(t, account)
			assert.Nil(t, claims)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			errutil.AssertErrorCode(t, err, "AUTH_UNAUTHENTICATED")
			errutil.AssertErrorContext(t, err, "reason", tt.reason)
		})
	}

	t.Run("expired token", func(t *testing.T) {
		env.clock.Advance(2 * time.Hour)
		defer env.clock.Advance(-2 * time.Hour)

		_, _, err := env.guard.Protect(requestWithBearer(created.Token))
		assert.ErrorIs(t, err, ErrUnauthenticated)
		errutil.AssertErrorContext(t, err, "reason", "expired_token")
	})
}

func TestGuard_PasswordChangedAfterIssue(t *testing.T) {
	env := newTestEnv(t)
	created := env.signup(t, "jonas@example.com", "test1234", "")

	changedAt := env.clock.Now().Add(time.Millisecond)
	digest, err := env.store.pool.Hash(t.Context(), "newpass123")
	require.NoError(t, err)
	require.NoError(t, env.repo.UpdatePassword(t.Context(), created.Account.ID, digest, changedAt))

	_, _, err = env.guard.Protect(requestWithBearer(created.Token))
	assert.ErrorIs(t, err, ErrUnauthenticated)
	errutil.AssertErrorContext(t, err, "reason", "password_changed")
}

func TestGuard_IsLoggedIn(t *testing.T) {
	env := newTestEnv(t)
	created := env.signup(t, "jonas@example.com", "test1234", "")

	account := env.guard.IsLoggedIn(requestWithCookie(created.Token))
	require.NotNil(t, account)
	assert.Equal(t, created.Account.ID, account.ID)

	assert.Nil(t, env.guard.IsLoggedIn(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Nil(t, env.guard.IsLoggedIn(requestWithCookie("loggedout")))
}

func TestRestrictTo(t *testing.T) {
	regular := &user.User{Role: user.RoleUser}
	admin := &user.User{Role: user.RoleAdmin}
	leadGuide := &user.User{Role: user.RoleLeadGuide}

	assert.ErrorIs(t, RestrictTo(regular, user.RoleAdmin), ErrForbidden)
	assert.NoError(t, RestrictTo(admin, user.RoleAdmin))
	assert.NoError(t, RestrictTo(leadGuide, user.RoleAdmin, user.RoleLeadGuide))
	assert.ErrorIs(t, RestrictTo(leadGuide), ErrForbidden)
	assert.ErrorIs(t, RestrictTo(nil, user.RoleAdmin), ErrForbidden)
}
