package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/natours-api/internal/database"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint violations
const uniqueViolation = "23505"

// Repository handles account persistence in Postgres.
// Every mutation is a single UPDATE statement so a concurrent reader never
// observes a half-written record.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new account. The ID is generated when u.ID is nil.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	id := u.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	role := u.Role
	if role == "" {
		role = RoleUser
	}

	dbUser := &database.User{
		ID:           id,
		Email:        NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(role),
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves an account by email (case-insensitive)
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get user by email", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("lower(email) = ?", NormalizeEmail(email))
	})
}

// GetByID retrieves an account by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "get user by id", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// GetByResetTokenHash retrieves the account holding the given reset token hash
func (r *Repository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	return r.getOne(ctx, "get user by reset token", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("reset_token_hash = ?", tokenHash)
	})
}

// UpdatePassword replaces the password hash, records the change time and
// clears any pending reset token
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return r.update(ctx, "update password", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("password_hash = ?", passwordHash).
			Set("password_changed_at = ?", changedAt).
			Set("reset_token_hash = NULL").
			Set("reset_token_expires_at = NULL")
	})
}

// SetResetToken stores a reset token hash and its expiry
func (r *Repository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.update(ctx, "set reset token", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("reset_token_hash = ?", tokenHash).
			Set("reset_token_expires_at = ?", expiresAt)
	})
}

// ConsumeResetToken sets a new password only while tokenHash is still the
// pending reset token and unexpired at changedAt. The check and the write
// are one statement, so concurrent callers cannot both consume the token.
func (r *Repository) ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string, changedAt time.Time) (bool, error) {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("password_changed_at = ?", changedAt).
		Set("reset_token_hash = NULL").
		Set("reset_token_expires_at = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("reset_token_hash = ?", tokenHash).
		Where("reset_token_expires_at > ?", changedAt)

	return r.updateIf(ctx, "consume reset token", id, q)
}

// ClearResetToken removes the pending reset token if it is still tokenHash
func (r *Repository) ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) (bool, error) {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_token_hash = NULL").
		Set("reset_token_expires_at = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("reset_token_hash = ?", tokenHash)

	return r.updateIf(ctx, "clear reset token", id, q)
}

func (r *Repository) getOne(ctx context.Context, op string, where func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	dbUser := new(database.User)
	err := where(r.db.NewSelect().Model(dbUser)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	return mapDBUserToModel(dbUser), nil
}

func (r *Repository) update(ctx context.Context, op string, id uuid.UUID, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", id)

	result, err := set(q).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// updateIf runs a conditional update. No matching row is not an error unless
// the account itself is missing.
func (r *Repository) updateIf(ctx context.Context, op string, id uuid.UUID, q *bun.UpdateQuery) (bool, error) {
	result, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return true, nil
	}

	exists, err := r.db.NewSelect().Model((*database.User)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                  dbu.ID,
		Email:               dbu.Email,
		PasswordHash:        dbu.PasswordHash,
		Role:                Role(dbu.Role),
		PasswordChangedAt:   dbu.PasswordChangedAt,
		ResetTokenHash:      dbu.ResetTokenHash,
		ResetTokenExpiresAt: dbu.ResetTokenExpiresAt,
		CreatedAt:           dbu.CreatedAt,
		UpdatedAt:           dbu.UpdatedAt,
	}
}
