package auth

import (
	"net/http"
	"time"
)

const (
	// DefaultCookieName carries the session token for browser clients
	DefaultCookieName = "jwt"

	loggedOutValue  = "loggedout"
	loggedOutMaxAge = 10 * time.Second
)

// CookieConfig controls how the session cookie is written
type CookieConfig struct {
	Name   string
	Secure bool
}

// SetSessionCookie stores token in an httpOnly cookie expiring with the token
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(cfg),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie overwrites the session cookie with a short-lived dummy
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(cfg),
		Value:    loggedOutValue,
		Path:     "/",
		Expires:  time.Now().Add(loggedOutMaxAge),
		MaxAge:   int(loggedOutMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieName(cfg CookieConfig) string {
	if cfg.Name == "" {
		return DefaultCookieName
	}
	return cfg.Name
}
