package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/user"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ErrNotConfigured is returned when no SMTP host is set
var ErrNotConfigured = errors.New("email delivery is not configured")

// Config holds SMTP and link settings
type Config struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	FrontendURL  string
	ResetTTL     time.Duration
}

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends password reset links over SMTP
type Service struct {
	cfg  Config
	send sendFunc
}

func NewService(cfg Config) *Service {
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{cfg: cfg, send: smtp.SendMail}
}

// SendPasswordResetEmail mails the reset link for rawToken to the account.
// The token itself is never logged.
func (s *Service) SendPasswordResetEmail(ctx context.Context, account *user.User, rawToken string) error {
	logger := logging.GetLoggerFromContext(ctx)
	errb := oops.In("email").With("user_id", account.ID)

	if s.cfg.SMTPHost == "" {
		return errb.Code("EMAIL_NOT_CONFIGURED").Wrap(ErrNotConfigured)
	}

	body, err := renderPasswordReset(s.ResetLink(rawToken), s.cfg.ResetTTL)
	if err != nil {
		return errb.Code("EMAIL_RENDER_FAILED").Wrap(err)
	}

	subject := "Your password reset token"
	if err := s.sendEmail(account.Email, subject, body); err != nil {
		return errb.Code("EMAIL_SEND_FAILED").Wrap(err)
	}

	logger.Info("password reset email sent", "user_id", account.ID)
	return nil
}

// ResetLink builds the URL a user follows to reset their password
func (s *Service) ResetLink(rawToken string) string {
	return fmt.Sprintf("%s/resetPassword/%s", s.cfg.FrontendURL, url.PathEscape(rawToken))
}

func (s *Service) sendEmail(to, subject, body string) error {
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.cfg.FromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	return s.send(addr, auth, s.cfg.FromEmail, []string{to}, msg)
}

func renderPasswordReset(resetLink string, validFor time.Duration) (string, error) {
	if validFor <= 0 {
		validFor = 10 * time.Minute
	}

	var buf bytes.Buffer
	data := struct {
		ResetLink string
		ValidFor  string
	}{
		ResetLink: resetLink,
		ValidFor:  humanize(validFor),
	}

	if err := templates.ExecuteTemplate(&buf, "password_reset.html", data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

func humanize(d time.Duration) string {
	if d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	if m := int(d.Round(time.Minute) / time.Minute); m != 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return "1 minute"
}
