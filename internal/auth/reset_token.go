package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

const (
	resetTokenBytes = 32 // 64 hex chars

	// DefaultResetTokenTTL is how long a password reset token stays valid
	DefaultResetTokenTTL = 10 * time.Minute
)

// ResetToken is a freshly generated password reset token.
// Raw goes to the user and is never stored; Hash is what gets persisted.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// ResetTokenGenerator produces one-time password reset tokens
type ResetTokenGenerator struct {
	ttl time.Duration
	now func() time.Time
}

// NewResetTokenGenerator creates a generator whose tokens expire after ttl
func NewResetTokenGenerator(ttl time.Duration) *ResetTokenGenerator {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenGenerator{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests
func (g *ResetTokenGenerator) WithClock(now func() time.Time) *ResetTokenGenerator {
	g.now = now
	return g
}

// Generate draws a random token and returns it with its hash and expiry
func (g *ResetTokenGenerator) Generate() (ResetToken, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return ResetToken{}, oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	raw := hex.EncodeToString(b)
	return ResetToken{
		Raw:       raw,
		Hash:      HashResetToken(raw),
		ExpiresAt: g.now().Add(g.ttl),
	}, nil
}

// HashResetToken computes the hex-encoded SHA-256 of a raw reset token.
// A fast hash is enough because the token is high-entropy and single-use.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// MatchesResetToken reports whether raw hashes to storedHash, in constant time
func MatchesResetToken(raw, storedHash string) bool {
	if raw == "" || storedHash == "" {
		return false
	}
	computed := HashResetToken(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
