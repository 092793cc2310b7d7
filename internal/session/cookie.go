package session

import (
	"fmt"
	"net/http"
	"time"
)

// CookieName is the name of the cookie carrying the session id
const CookieName = "session"

// CookieConfig holds the attributes of the session cookie
type CookieConfig struct {
	Domain string
	// Secure is set in production
	Secure bool
}

func (cfg CookieConfig) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Set writes the session cookie for sessionID. It returns an error and
// writes nothing if the resulting cookie would be invalid.
func (cfg CookieConfig) Set(w http.ResponseWriter, sessionID string) error {
	c := cfg.cookie(sessionID, int(TTL/time.Second))
	if err := c.Valid(); err != nil {
		return fmt.Errorf("invalid session cookie: %w", err)
	}
	http.SetCookie(w, c)
	return nil
}

// Clear expires the session cookie on the client
func (cfg CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, cfg.cookie("", -1))
}
