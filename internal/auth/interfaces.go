package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/natours-api/internal/user"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// DefaultTokenTTL is the lifetime of a session token
const DefaultTokenTTL = 90 * 24 * time.Hour

// TokenClaims are the verified contents of a session token
type TokenClaims struct {
	SubjectID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies stateless session tokens.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	// Issue creates a token for subjectID valid for the configured TTL.
	Issue(subjectID uuid.UUID) (token string, expiresAt time.Time, err error)

	// Verify returns the claims of a valid token, ErrExpiredToken when it is
	// past expiry and ErrInvalidToken for anything else.
	Verify(token string) (*TokenClaims, error)
}

// AccountRepository is the persistence contract of the account store.
// Mutations must be atomic per account.
type AccountRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*user.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	// ConsumeResetToken and ClearResetToken only act while tokenHash is the
	// pending reset token and report whether they did.
	ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string, changedAt time.Time) (bool, error)
	ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) (bool, error)
}

// EmailSender delivers password reset links
type EmailSender interface {
	SendPasswordResetEmail(ctx context.Context, account *user.User, rawToken string) error
}

// Recorder receives auth metrics
type Recorder interface {
	RecordAuthEvent(event, outcome string)
	RecordGuardRejection(reason string)
	ObserveHashDuration(op string, d time.Duration)
}

// NopRecorder discards all metrics
type NopRecorder struct{}

func (NopRecorder) RecordAuthEvent(string, string)            {}
func (NopRecorder) RecordGuardRejection(string)               {}
func (NopRecorder) ObserveHashDuration(string, time.Duration) {}

// issuedAtPrecision is the resolution of a token's issued-at claim. It has
// to be finer than one second so a token minted right after a password change
// orders after PasswordChangedAt, and it matches Postgres timestamptz.
const issuedAtPrecision = time.Microsecond
