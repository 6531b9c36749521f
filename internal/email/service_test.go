package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/errutil"
	"github.com/redmonkez12/natours-api/internal/user"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(cfg Config) (*Service, *capturedMail) {
	captured := &capturedMail{}
	s := NewService(cfg)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return nil
	}
	return s, captured
}

func testAccount() *user.User {
	return &user.User{ID: uuid.New(), Email: "jonas@example.com", Role: user.RoleUser}
}

func TestSendPasswordResetEmail_SendsLink(t *testing.T) {
	s, captured := newTestService(Config{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		SMTPUser:    "noreply@natours.io",
		FrontendURL: "https://natours.io/",
		ResetTTL:    10 * time.Minute,
	})

	err := s.SendPasswordResetEmail(context.Background(), testAccount(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", captured.addr)
	assert.Equal(t, "noreply@natours.io", captured.from)
	assert.Equal(t, []string{"jonas@example.com"}, captured.to)
	assert.Contains(t, captured.msg, "https://natours.io/resetPassword/abc123")
	assert.Contains(t, captured.msg, "valid for 10 minutes")
}

func TestSendPasswordResetEmail_NotConfigured(t *testing.T) {
	s, _ := newTestService(Config{})

	err := s.SendPasswordResetEmail(context.Background(), testAccount(), "abc123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
	errutil.AssertErrorCode(t, err, "EMAIL_NOT_CONFIGURED")
}

func TestSendPasswordResetEmail_SendFailure(t *testing.T) {
	s, _ := newTestService(Config{SMTPHost: "smtp.example.com", SMTPPort: "25"})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := s.SendPasswordResetEmail(context.Background(), testAccount(), "abc123")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "EMAIL_SEND_FAILED")
	assert.NotContains(t, err.Error(), "abc123")
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "10 minutes", humanize(10*time.Minute))
	assert.Equal(t, "1 minute", humanize(time.Minute))
	assert.Equal(t, "1 hour", humanize(time.Hour))
	assert.Equal(t, "2 hours", humanize(2*time.Hour))
}
