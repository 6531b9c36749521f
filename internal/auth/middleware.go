package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	AccountContextKey ContextKey = "account"
	ClaimsContextKey  ContextKey = "token_claims"
)

// Middleware adapts the Guard to chi middleware
type Middleware struct {
	guard *Guard
}

func NewMiddleware(guard *Guard) *Middleware {
	return &Middleware{guard: guard}
}

// RequireAuth rejects requests without a valid session and stores the
// account in the request context
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, claims, err := m.guard.Protect(r)
		if err != nil {
			logger := logging.GetLoggerFromContext(r.Context())
			if errors.Is(err, ErrUnauthenticated) {
				logger.Debug("request rejected by guard", "error", err.Error())
			}
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, account)
		ctx = context.WithValue(ctx, ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only accounts holding one of roles. It must run after
// RequireAuth.
func (m *Middleware) RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, _ := AccountFromContext(r.Context())
			if err := RestrictTo(account, roles...); err != nil {
				m.guard.recorder.RecordGuardRejection("forbidden_role")
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth stores the account in the context when the request carries a
// valid session and passes every request through
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if account := m.guard.IsLoggedIn(r); account != nil {
			r = r.WithContext(context.WithValue(r.Context(), AccountContextKey, account))
		}
		next.ServeHTTP(w, r)
	})
}

// AccountFromContext extracts the authenticated account from the request context
func AccountFromContext(ctx context.Context) (*user.User, bool) {
	account, ok := ctx.Value(AccountContextKey).(*user.User)
	return account, ok && account != nil
}

// ClaimsFromContext extracts the verified token claims from the request context
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*TokenClaims)
	return claims, ok && claims != nil
}
