package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTokenGenerator_Generate(t *testing.T) {
	clock := newFakeClock()
	gen := NewResetTokenGenerator(10 * time.Minute).WithClock(clock.Now)

	token, err := gen.Generate()
	require.NoError(t, err)

	assert.Len(t, token.Raw, 64)
	assert.Len(t, token.Hash, 64)
	assert.NotEqual(t, token.Raw, token.Hash)
	assert.Equal(t, HashResetToken(token.Raw), token.Hash)
	assert.Equal(t, clock.Now().Add(10*time.Minute), token.ExpiresAt)
}

func TestResetTokenGenerator_Unique(t *testing.T) {
	gen := NewResetTokenGenerator(0)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := gen.Generate()
		require.NoError(t, err)
		require.False(t, seen[token.Raw], "duplicate token")
		seen[token.Raw] = true
	}
}

func TestResetTokenGenerator_DefaultWindow(t *testing.T) {
	clock := newFakeClock()
	token, err := NewResetTokenGenerator(0).WithClock(clock.Now).Generate()
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(DefaultResetTokenTTL), token.ExpiresAt)
}

func TestMatchesResetToken(t *testing.T) {
	token, err := NewResetTokenGenerator(0).Generate()
	require.NoError(t, err)

	assert.True(t, MatchesResetToken(token.Raw, token.Hash))
	assert.False(t, MatchesResetToken(token.Raw+"x", token.Hash))
	assert.False(t, MatchesResetToken(token.Hash, token.Hash))
	assert.False(t, MatchesResetToken("", token.Hash))
	assert.False(t, MatchesResetToken(token.Raw, ""))
}
