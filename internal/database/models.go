package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun model for the users table
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                  uuid.UUID  `bun:"id,pk,type:uuid"`
	Email               string     `bun:"email,notnull"`
	PasswordHash        string     `bun:"password_hash,notnull"`
	Role                string     `bun:"role,notnull"`
	PasswordChangedAt   *time.Time `bun:"password_changed_at"`
	ResetTokenHash      *string    `bun:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `bun:"reset_token_expires_at"`
	CreatedAt           time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}
