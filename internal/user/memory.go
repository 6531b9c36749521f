package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// record is a single account guarded by its own lock so that mutations of
// one account never block reads or writes of another.
type record struct {
	mu   sync.RWMutex
	user *User
}

// MemoryRepository is an in-process account repository. It is safe for
// concurrent use; every method returns copies of the stored records.
type MemoryRepository struct {
	mu      sync.RWMutex // guards the maps, not the records
	byID    map[uuid.UUID]*record
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]*record),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// Create stores a new account. The ID is generated when u.ID is nil.
func (r *MemoryRepository) Create(_ context.Context, u *User) (*User, error) {
	email := NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, ErrDuplicateEmail
	}

	stored := u.Clone()
	stored.Email = email
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if _, exists := r.byID[stored.ID]; exists {
		return nil, ErrDuplicateID
	}
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = &record{user: stored}
	r.byEmail[email] = stored.ID

	return stored.Clone(), nil
}

// GetByEmail retrieves an account by email (case-insensitive)
func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	rec := r.byID[id]
	r.mu.RUnlock()

	if !ok || rec == nil {
		return nil, ErrNotFound
	}
	return rec.snapshot(), nil
}

// GetByID retrieves an account by ID
func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	rec := r.lookup(id)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec.snapshot(), nil
}

// GetByResetTokenHash scans for the account holding the given reset token hash
func (r *MemoryRepository) GetByResetTokenHash(_ context.Context, tokenHash string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.byID {
		rec.mu.RLock()
		match := rec.user.ResetTokenHash != nil && *rec.user.ResetTokenHash == tokenHash
		var found *User
		if match {
			found = rec.user.Clone()
		}
		rec.mu.RUnlock()

		if match {
			return found, nil
		}
	}

	return nil, ErrNotFound
}

// UpdatePassword replaces the password hash, records the change time and
// clears any pending reset token in a single step.
func (r *MemoryRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return r.mutate(id, func(u *User) {
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changedAt
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
	})
}

// SetResetToken stores a reset token hash and its expiry
func (r *MemoryRepository) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.mutate(id, func(u *User) {
		u.ResetTokenHash = &tokenHash
		u.ResetTokenExpiresAt = &expiresAt
	})
}

// ConsumeResetToken sets a new password only while tokenHash is still the
// pending reset token and unexpired at changedAt. It reports whether the
// token was consumed.
func (r *MemoryRepository) ConsumeResetToken(_ context.Context, id uuid.UUID, tokenHash, passwordHash string, changedAt time.Time) (bool, error) {
	return r.mutateIf(id, func(u *User) bool {
		if !u.holdsResetToken(tokenHash) || !changedAt.Before(*u.ResetTokenExpiresAt) {
			return false
		}
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changedAt
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		return true
	})
}

// ClearResetToken removes the pending reset token if it is still tokenHash
func (r *MemoryRepository) ClearResetToken(_ context.Context, id uuid.UUID, tokenHash string) (bool, error) {
	return r.mutateIf(id, func(u *User) bool {
		if !u.holdsResetToken(tokenHash) {
			return false
		}
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		return true
	})
}

func (r *MemoryRepository) lookup(id uuid.UUID) *record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

func (r *MemoryRepository) mutate(id uuid.UUID, fn func(u *User)) error {
	rec := r.lookup(id)
	if rec == nil {
		return ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	fn(rec.user)
	rec.user.UpdatedAt = r.now()
	return nil
}

// mutateIf applies fn under the record lock; fn reports whether it changed anything
func (r *MemoryRepository) mutateIf(id uuid.UUID, fn func(u *User) bool) (bool, error) {
	rec := r.lookup(id)
	if rec == nil {
		return false, ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !fn(rec.user) {
		return false, nil
	}
	rec.user.UpdatedAt = r.now()
	return true, nil
}

func (rec *record) snapshot() *User {
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.user.Clone()
}
