package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/redmonkez12/natours-api/internal/user"
)

// AccountStore owns account records on top of an AccountRepository.
// It normalizes input and hashes passwords so plaintext never reaches storage.
type AccountStore struct {
	repo  AccountRepository
	pool  *HashPool
	dummy string // digest verified against on unknown-email logins
}

// NewAccountStore creates a store. The dummy digest is computed once here.
func NewAccountStore(repo AccountRepository, pool *HashPool) (*AccountStore, error) {
	dummy, err := pool.hasher.Hash("natours-timing-equalizer")
	if err != nil {
		return nil, oops.Code("AUTH_STORE_INIT_FAILED").Wrap(err)
	}
	return &AccountStore{repo: repo, pool: pool, dummy: dummy}, nil
}

// Create hashes password and inserts a new account. An empty role means RoleUser.
func (s *AccountStore) Create(ctx context.Context, email, password string, role user.Role) (*user.User, error) {
	if role == "" {
		role = user.RoleUser
	}
	if !role.Valid() {
		return nil, invalid("role", "role is not valid")
	}

	digest, err := s.pool.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &user.User{
		Email:        user.NormalizeEmail(email),
		PasswordHash: digest,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, oops.Code("AUTH_STORE_CREATE_FAILED").Wrap(err)
	}
	return created, nil
}

// FindByEmail returns user.ErrNotFound when no account has that email
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.repo.GetByEmail(ctx, user.NormalizeEmail(email))
}

// FindByID returns user.ErrNotFound when the account does not exist
func (s *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByResetToken finds the account whose outstanding reset token is raw
func (s *AccountStore) FindByResetToken(ctx context.Context, raw string) (*user.User, error) {
	if raw == "" {
		return nil, user.ErrNotFound
	}
	account, err := s.repo.GetByResetTokenHash(ctx, HashResetToken(raw))
	if err != nil {
		return nil, err
	}
	if account.ResetTokenHash == nil || !MatchesResetToken(raw, *account.ResetTokenHash) {
		return nil, user.ErrNotFound
	}
	return account, nil
}

// VerifyPassword checks password against the account's digest
func (s *AccountStore) VerifyPassword(ctx context.Context, account *user.User, password string) (bool, error) {
	return s.pool.Verify(ctx, password, account.PasswordHash)
}

// VerifyDummy burns the same hashing cost as a real verification
func (s *AccountStore) VerifyDummy(ctx context.Context, password string) error {
	_, err := s.pool.Verify(ctx, password, s.dummy)
	return err
}

// SetPassword stores a new password, records the change time and clears any
// pending reset in one repository operation.
func (s *AccountStore) SetPassword(ctx context.Context, account *user.User, password string, at time.Time) error {
	digest, err := s.pool.Hash(ctx, password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, account.ID, digest, at)
}

func (s *AccountStore) SetResetToken(ctx context.Context, account *user.User, tokenHash string, expiresAt time.Time) error {
	return s.repo.SetResetToken(ctx, account.ID, tokenHash, expiresAt)
}

// ResetPassword sets password through the reset token raw. It reports false
// when raw is no longer the account's unexpired pending token, which happens
// when a concurrent request consumed it first.
func (s *AccountStore) ResetPassword(ctx context.Context, account *user.User, raw, password string, at time.Time) (bool, error) {
	digest, err := s.pool.Hash(ctx, password)
	if err != nil {
		return false, err
	}
	return s.repo.ConsumeResetToken(ctx, account.ID, HashResetToken(raw), digest, at)
}

// ClearResetToken drops the pending reset token if it is still tokenHash,
// leaving a newer token in place
func (s *AccountStore) ClearResetToken(ctx context.Context, account *user.User, tokenHash string) error {
	_, err := s.repo.ClearResetToken(ctx, account.ID, tokenHash)
	return err
}
