package security

import (
	"net/http"
	"time"
)

const RefreshCookieName = "refresh_token"

// Secure cookies use the __Host- prefix, which requires Path=/ and no Domain.
func refreshCookieName(secure bool) string {
	if secure {
		return "__Host-" + RefreshCookieName
	}
	return RefreshCookieName
}

func SetRefreshToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName(secure),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure, // prod=true, dev=false
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearRefreshToken(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName(secure),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// ReadRefreshToken prefers the secure cookie and falls back to the plain
// one used on local non-TLS setups.
func ReadRefreshToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookieName(true)); err == nil {
		return c.Value, nil
	}
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
