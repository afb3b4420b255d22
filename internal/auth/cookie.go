package auth

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "session"
	SessionDuration   = 7 * 24 * time.Hour
)

// NewSessionCookie wraps a minted session value in the cookie the browser
// keeps for a week. Secure is only set in production so local http works.
func NewSessionCookie(value string, production bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionDuration / time.Second),
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedSessionCookie deletes the session cookie.
func ClearedSessionCookie(production bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
}
