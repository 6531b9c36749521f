package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

const (
	maxEmailLen       = 254
	minPasswordLength = 8
	maxPasswordLength = 128
)

// AuthResult is the outcome of an operation that issues a session token
type AuthResult struct {
	Account   *user.User
	Token     string
	ExpiresAt time.Time
}

// SignupInput holds the fields accepted at signup
type SignupInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	Role            user.Role
}

// Service handles authentication business logic
type Service struct {
	store    *AccountStore
	tokens   TokenService
	resets   *ResetTokenGenerator
	mailer   EmailSender
	logger   *logging.Logger
	recorder Recorder
	now      func() time.Time
}

func NewService(
	store *AccountStore,
	tokens TokenService,
	resets *ResetTokenGenerator,
	mailer EmailSender,
	logger *logging.Logger,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		resets:   resets,
		mailer:   mailer,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for password change timestamps
// and reset expiry checks, for tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Signup creates a new account and issues its first session token
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	errb := oops.In("auth").With("operation", "signup")

	if err := validateEmail(in.Email); err != nil {
		return nil, s.fail("signup", errb.Code("AUTH_VALIDATION").Wrap(err))
	}
	if err := validateNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, s.fail("signup", errb.Code("AUTH_VALIDATION").Wrap(err))
	}

	account, err := s.store.Create(ctx, in.Email, in.Password, in.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return nil, s.fail("signup", errb.Code("AUTH_VALIDATION").Wrap(err))
		case errors.Is(err, ErrDuplicateEmail):
			return nil, s.fail("signup", errb.Code("AUTH_DUPLICATE_EMAIL").Wrap(err))
		}
		return nil, s.fail("signup", errb.Code("AUTH_SIGNUP_FAILED").Wrap(err))
	}

	result, err := s.issue(account)
	if err != nil {
		return nil, s.fail("signup", errb.Code("AUTH_TOKEN_ISSUE_FAILED").Wrap(err))
	}

	s.recorder.RecordAuthEvent("signup", "success")
	s.logger.Info("account created", "user_id", account.ID, "role", account.Role)
	return result, nil
}

// Login authenticates by email and password. An unknown email and a wrong
// password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	errb := oops.In("auth").With("operation", "login")

	if email == "" || password == "" {
		return nil, s.fail("login", errb.Code("AUTH_VALIDATION").Wrap(invalid("email", "please provide email and password")))
	}

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return nil, s.fail("login", errb.Code("AUTH_LOGIN_FAILED").Wrap(err))
		}
		if err := s.store.VerifyDummy(ctx, password); err != nil {
			return nil, s.fail("login", errb.Code("AUTH_LOGIN_FAILED").Wrap(err))
		}
		return nil, s.fail("login", errb.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials))
	}

	ok, err := s.store.VerifyPassword(ctx, account, password)
	if err != nil {
		return nil, s.fail("login", errb.Code("AUTH_LOGIN_FAILED").Wrap(err))
	}
	if !ok {
		return nil, s.fail("login", errb.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials))
	}

	result, err := s.issue(account)
	if err != nil {
		return nil, s.fail("login", errb.Code("AUTH_TOKEN_ISSUE_FAILED").Wrap(err))
	}

	s.recorder.RecordAuthEvent("login", "success")
	return result, nil
}

// RequestPasswordReset stores a reset token for the account and mails the raw
// value. Unknown emails succeed without any effect.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	errb := oops.In("auth").With("operation", "request_password_reset")

	if email == "" {
		return s.fail("forgot_password", errb.Code("AUTH_VALIDATION").Wrap(invalid("email", "please provide your email address")))
	}

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.recorder.RecordAuthEvent("forgot_password", "unknown_email")
			return nil
		}
		return s.fail("forgot_password", errb.Code("AUTH_RESET_REQUEST_FAILED").Wrap(err))
	}

	token, err := s.resets.Generate()
	if err != nil {
		return s.fail("forgot_password", errb.Code("AUTH_RESET_REQUEST_FAILED").Wrap(err))
	}

	if err := s.store.SetResetToken(ctx, account, token.Hash, token.ExpiresAt); err != nil {
		return s.fail("forgot_password", errb.Code("AUTH_RESET_REQUEST_FAILED").With("user_id", account.ID).Wrap(err))
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, account, token.Raw); err != nil {
		s.logger.LogError("failed to send password reset email", oops.With("user_id", account.ID).Wrap(err))

		// Detached so a cancelled request still rolls back the token.
		if clearErr := s.store.ClearResetToken(context.WithoutCancel(ctx), account, token.Hash); clearErr != nil {
			s.logger.LogError("failed to roll back reset token", oops.With("user_id", account.ID).Wrap(clearErr))
		}
		return s.fail("forgot_password", errb.Code("AUTH_EMAIL_DELIVERY_FAILED").With("user_id", account.ID).Wrap(ErrEmailDeliveryFailed))
	}

	s.recorder.RecordAuthEvent("forgot_password", "success")
	s.logger.Info("password reset requested", "user_id", account.ID)
	return nil
}

// ConfirmPasswordReset sets a new password using a raw reset token. A token
// works once; an expired token is discarded.
func (s *Service) ConfirmPasswordReset(ctx context.Context, rawToken, password, passwordConfirm string) (*AuthResult, error) {
	errb := oops.In("auth").With("operation", "confirm_password_reset")

	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, s.fail("reset_password", errb.Code("AUTH_VALIDATION").Wrap(err))
	}

	account, err := s.store.FindByResetToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, s.fail("reset_password", errb.Code("AUTH_RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid))
		}
		return nil, s.fail("reset_password", errb.Code("AUTH_RESET_FAILED").Wrap(err))
	}

	now := s.changeTime()
	if account.ResetTokenExpiresAt == nil || !now.Before(*account.ResetTokenExpiresAt) {
		if err := s.store.ClearResetToken(ctx, account, *account.ResetTokenHash); err != nil {
			s.logger.LogError("failed to clear expired reset token", oops.With("user_id", account.ID).Wrap(err))
		}
		return nil, s.fail("reset_password", errb.Code("AUTH_RESET_TOKEN_EXPIRED").With("user_id", account.ID).Wrap(ErrResetTokenExpired))
	}

	consumed, err := s.store.ResetPassword(ctx, account, rawToken, password, now)
	if err != nil {
		return nil, s.fail("reset_password", errb.Code("AUTH_RESET_FAILED").With("user_id", account.ID).Wrap(err))
	}
	if !consumed {
		return nil, s.fail("reset_password", errb.Code("AUTH_RESET_TOKEN_INVALID").With("user_id", account.ID).Wrap(ErrResetTokenInvalid))
	}

	return s.reloadAndIssue(ctx, "reset_password", errb, account)
}

// ChangePassword replaces the password of an authenticated account after
// re-checking the current one. Tokens issued before the change stop working.
func (s *Service) ChangePassword(ctx context.Context, account *user.User, current, password, passwordConfirm string) (*AuthResult, error) {
	errb := oops.In("auth").With("operation", "change_password").With("user_id", account.ID)

	fresh, err := s.store.FindByID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, s.fail("change_password", errb.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated))
		}
		return nil, s.fail("change_password", errb.Code("AUTH_CHANGE_PASSWORD_FAILED").Wrap(err))
	}

	ok, err := s.store.VerifyPassword(ctx, fresh, current)
	if err != nil {
		return nil, s.fail("change_password", errb.Code("AUTH_CHANGE_PASSWORD_FAILED").Wrap(err))
	}
	if !ok {
		return nil, s.fail("change_password", errb.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials))
	}

	if err := validateNewPassword(password, passwordConfirm); err != nil {
		return nil, s.fail("change_password", errb.Code("AUTH_VALIDATION").Wrap(err))
	}

	if err := s.store.SetPassword(ctx, fresh, password, s.changeTime()); err != nil {
		return nil, s.fail("change_password", errb.Code("AUTH_CHANGE_PASSWORD_FAILED").Wrap(err))
	}

	return s.reloadAndIssue(ctx, "change_password", errb, fresh)
}

func (s *Service) reloadAndIssue(ctx context.Context, event string, errb oops.OopsErrorBuilder, account *user.User) (*AuthResult, error) {
	updated, err := s.store.FindByID(ctx, account.ID)
	if err != nil {
		return nil, s.fail(event, errb.Code("AUTH_RELOAD_FAILED").Wrap(err))
	}

	result, err := s.issue(updated)
	if err != nil {
		return nil, s.fail(event, errb.Code("AUTH_TOKEN_ISSUE_FAILED").Wrap(err))
	}

	s.recorder.RecordAuthEvent(event, "success")
	s.logger.Info("password changed", "user_id", updated.ID, "via", event)
	return result, nil
}

// changeTime is the password change timestamp, at the same precision as a
// token's issued-at so a token minted right after the change is not older.
func (s *Service) changeTime() time.Time {
	return s.now().Truncate(issuedAtPrecision)
}

func (s *Service) issue(account *user.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

// fail records the outcome of a failed operation and returns err unchanged
func (s *Service) fail(event string, err error) error {
	s.recorder.RecordAuthEvent(event, outcome(err))
	return err
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid_input"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrResetTokenInvalid):
		return "reset_token_invalid"
	case errors.Is(err, ErrResetTokenExpired):
		return "reset_token_expired"
	case errors.Is(err, ErrEmailDeliveryFailed):
		return "email_failed"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "error"
	}
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "please provide your email")
	}
	if len(email) > maxEmailLen {
		return invalid("email", "please provide a valid email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "please provide a valid email")
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if password == "" {
		return invalid("password", "please provide a password")
	}
	if len(password) < minPasswordLength {
		return invalid("password", "password must be at least 8 characters")
	}
	if len(password) > maxPasswordLength {
		return invalid("password", "password must be at most 128 characters")
	}
	if password != confirm {
		return invalid("passwordConfirm", "passwords are not the same")
	}
	return nil
}
