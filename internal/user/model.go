package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is an account's authorization role
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Roles lists every valid role
var Roles = []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is the persisted credential record of an account
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"` // Never expose password hash in JSON
	Role                Role       `json:"role"`
	PasswordChangedAt   *time.Time `json:"-"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasPendingReset reports whether a reset token is outstanding
func (u *User) HasPendingReset() bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil
}

// holdsResetToken reports whether tokenHash is the pending reset token
func (u *User) holdsResetToken(tokenHash string) bool {
	return u.HasPendingReset() && *u.ResetTokenHash == tokenHash
}

// ChangedPasswordAfter reports whether the password was changed after t.
// Accounts that never changed their password return false.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	return u.PasswordChangedAt != nil && u.PasswordChangedAt.After(t)
}

// Clone returns a deep copy so callers never share mutable state
func (u *User) Clone() *User {
	c := *u
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		c.ResetTokenHash = &h
	}
	if u.ResetTokenExpiresAt != nil {
		t := *u.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &t
	}
	return &c
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
