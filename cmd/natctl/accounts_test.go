package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/app"
	"github.com/redmonkez12/natours-api/internal/auth"
	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/errutil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

func newMemoryApp(t *testing.T) *app.App {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Backend: config.StoreBackendMemory},
		Auth: config.AuthConfig{
			TokenStrategy:   config.TokenStrategyJWT,
			TokenKey:        []byte("0123456789abcdef0123456789abcdef"),
			TokenTTL:        time.Hour,
			ResetTokenTTL:   10 * time.Minute,
			HashConcurrency: 2,
			Argon2Time:      1,
			Argon2MemoryKiB: 1024,
			Argon2Threads:   1,
		},
		RateLimit: config.RateLimitConfig{Requests: 10, Window: time.Minute, Cooldown: time.Minute},
	}
	a, err := app.New(context.Background(), cfg, logging.NewLoggerWithWriter(io.Discard, false), app.Options{SkipRedis: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestImportAccounts(t *testing.T) {
	a := newMemoryApp(t)
	ctx := context.Background()

	file := `[
		{"email": "leo@example.com", "password": "test1234", "role": "lead-guide"},
		{"email": "Sophie@Example.com", "password": "test1234"},
		{"email": "sophie@example.com", "password": "other-pass"}
	]`

	var out bytes.Buffer
	report, err := importAccounts(ctx, a.Service, strings.NewReader(file), &out)
	require.NoError(t, err)
	assert.Equal(t, importReport{Created: 2, Skipped: 1}, report)
	assert.Contains(t, out.String(), "sophie@example.com already exists")

	leo, err := a.Accounts.FindByEmail(ctx, "leo@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleLeadGuide, leo.Role)

	sophie, err := a.Accounts.FindByEmail(ctx, "sophie@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, sophie.Role)

	ok, err := a.Accounts.VerifyPassword(ctx, sophie, "test1234")
	require.NoError(t, err)
	assert.True(t, ok, "the duplicate entry must not overwrite the first password")
}

func TestImportAccounts_StopsOnInvalidEntry(t *testing.T) {
	a := newMemoryApp(t)

	file := `[
		{"email": "ok@example.com", "password": "test1234"},
		{"email": "not-an-email", "password": "test1234"},
		{"email": "never@example.com", "password": "test1234"}
	]`

	report, err := importAccounts(context.Background(), a.Service, strings.NewReader(file), io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrValidation)
	errutil.AssertErrorCode(t, err, "AUTH_VALIDATION")
	errutil.AssertErrorContext(t, err, "index", 1)
	assert.Equal(t, 1, report.Created)

	_, err = a.Accounts.FindByEmail(context.Background(), "never@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestImportAccounts_BadFile(t *testing.T) {
	a := newMemoryApp(t)

	_, err := importAccounts(context.Background(), a.Service, strings.NewReader(`{"email":"x"}`), io.Discard)
	errutil.AssertErrorCode(t, err, "IMPORT_BAD_FILE")
}

func TestCreateAdmin(t *testing.T) {
	a := newMemoryApp(t)
	ctx := context.Background()

	account, err := createAdmin(ctx, a.Service, "root@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, account.Role)

	_, err = createAdmin(ctx, a.Service, "root@example.com", "correct horse")
	assert.ErrorIs(t, err, auth.ErrDuplicateEmail)

	_, err = createAdmin(ctx, a.Service, "short@example.com", "short")
	assert.ErrorIs(t, err, auth.ErrValidation)
}

func TestGenerateKey(t *testing.T) {
	key, err := generateKey(bytes.NewReader(bytes.Repeat([]byte{0xAB}, 24)))
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = auth.NewPasetoService([]byte(key), time.Hour)
	assert.NoError(t, err)

	_, err = generateKey(bytes.NewReader([]byte{1, 2, 3}))
	errutil.AssertErrorCode(t, err, "KEYGEN_FAILED")
}

func TestGenKeyCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"gen-key"})

	require.NoError(t, cmd.Execute())
	assert.Len(t, strings.TrimSpace(out.String()), 32)
}
