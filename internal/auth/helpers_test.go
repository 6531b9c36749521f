package auth

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

// fastParams keeps argon2 cheap in tests
var fastParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16}

var testKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendPasswordResetEmail(ctx context.Context, account *user.User, rawToken string) error {
	args := m.Called(ctx, account, rawToken)
	return args.Error(0)
}

type testEnv struct {
	repo    *user.MemoryRepository
	store   *AccountStore
	tokens  *PasetoService
	service *Service
	guard   *Guard
	mailer  *mockMailer
	clock   *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock()
	repo := user.NewMemoryRepository()
	pool := NewHashPool(NewArgon2idHasher(fastParams), 2, nil)
	store, err := NewAccountStore(repo, pool)
	require.NoError(t, err)

	tokens, err := NewPasetoService(testKey, time.Hour)
	require.NoError(t, err)
	tokens.WithClock(clock.Now)

	mailer := &mockMailer{}
	logger := logging.NewLoggerWithWriter(io.Discard, true)
	resets := NewResetTokenGenerator(10 * time.Minute).WithClock(clock.Now)

	service := NewService(store, tokens, resets, mailer, logger, nil).WithClock(clock.Now)

	return &testEnv{
		repo:    repo,
		store:   store,
		tokens:  tokens,
		service: service,
		guard:   NewGuard(tokens, store, DefaultCookieName, nil),
		mailer:  mailer,
		clock:   clock,
	}
}

func (e *testEnv) signup(t *testing.T, email, password string, role user.Role) *AuthResult {
	t.Helper()
	result, err := e.service.Signup(context.Background(), SignupInput{
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
		Role:            role,
	})
	require.NoError(t, err)
	return result
}

// captureResetToken makes the mock mailer accept one email and returns a
// pointer that receives the raw token
func (e *testEnv) captureResetToken() *string {
	var raw string
	e.mailer.On("SendPasswordResetEmail", mock.Anything, mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { raw = args.String(2) }).
		Return(nil).
		Once()
	return &raw
}

func unknownID() uuid.UUID {
	return uuid.New()
}
