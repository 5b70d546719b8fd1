package security

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"
)

// CSRFCookieName is the host-only cookie carrying the anti-forgery token.
// The __Host- prefix requires Secure, Path=/, and no Domain attribute.
const CSRFCookieName = "__Host-CSRF_TOKEN"

// csrfTokenBytes is the entropy of a CSRF token (128 bits).
const csrfTokenBytes = 16

// DefaultCSRFMaxAge bounds a token to one render-submit cycle.
const DefaultCSRFMaxAge = 10 * time.Minute

// ErrCSRFMismatch indicates the form token and cookie token are missing
// or do not match.
var ErrCSRFMismatch = errors.New("csrf token mismatch")

// GenerateCSRFToken produces a random token and the cookie directive
// carrying it. The raw token is embedded in the form; the cookie copy is
// the browser-held half of the double-submit pair.
func GenerateCSRFToken() (token string, cookie *http.Cookie, err error) {
	token, err = GenerateRandomToken(csrfTokenBytes)
	if err != nil {
		return "", nil, err
	}

	cookie = &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(DefaultCSRFMaxAge.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return token, cookie, nil
}

// ValidateCSRFToken compares the submitted form token against the cookie
// token in constant time. Fails if either is absent.
func ValidateCSRFToken(formToken string, r *http.Request) error {
	if formToken == "" {
		return ErrCSRFMismatch
	}

	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return ErrCSRFMismatch
	}

	if subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// ClearCSRFCookie returns a directive instructing the browser to drop the
// CSRF cookie. Tokens live for one render-submit cycle only.
func ClearCSRFCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
