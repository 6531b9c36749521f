package auth

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/samber/oops"

	"github.com/redmonkez12/natours-api/internal/user"
)

// Guard authenticates requests from their session token and authorizes
// them by role.
type Guard struct {
	tokens     TokenService
	store      *AccountStore
	cookieName string
	recorder   Recorder
}

// NewGuard creates a guard reading tokens from the Authorization header or
// the named cookie
func NewGuard(tokens TokenService, store *AccountStore, cookieName string, recorder Recorder) *Guard {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Guard{
		tokens:     tokens,
		store:      store,
		cookieName: cookieName,
		recorder:   recorder,
	}
}

// Protect resolves the account behind the request's session token. Every
// failure is ErrUnauthenticated; the oops "reason" context tells them apart.
func (g *Guard) Protect(r *http.Request) (*user.User, *TokenClaims, error) {
	errb := oops.In("guard").Code("AUTH_UNAUTHENTICATED")

	token := g.extractToken(r)
	if token == "" {
		return nil, nil, g.reject(errb, "missing_token", nil)
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, ErrExpiredToken) {
			reason = "expired_token"
		}
		return nil, nil, g.reject(errb, reason, err)
	}

	account, err := g.store.FindByID(r.Context(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, g.reject(errb.With("user_id", claims.SubjectID), "account_missing", nil)
		}
		return nil, nil, oops.In("guard").Code("AUTH_GUARD_LOOKUP_FAILED").With("user_id", claims.SubjectID).Wrap(err)
	}

	if account.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, nil, g.reject(errb.With("user_id", account.ID), "password_changed", nil)
	}

	return account, claims, nil
}

// IsLoggedIn is a non-failing Protect: any failure yields nil
func (g *Guard) IsLoggedIn(r *http.Request) *user.User {
	account, _, err := g.Protect(r)
	if err != nil {
		return nil
	}
	return account
}

// RestrictTo returns ErrForbidden unless the account holds one of roles
func RestrictTo(account *user.User, roles ...user.Role) error {
	if account == nil || !slices.Contains(roles, account.Role) {
		return ErrForbidden
	}
	return nil
}

func (g *Guard) reject(errb oops.OopsErrorBuilder, reason string, cause error) error {
	g.recorder.RecordGuardRejection(reason)
	errb = errb.With("reason", reason)
	if cause != nil {
		errb = errb.With("cause", cause.Error())
	}
	return errb.Wrap(ErrUnauthenticated)
}

// extractToken prefers a Bearer Authorization header over the cookie
func (g *Guard) extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(g.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
