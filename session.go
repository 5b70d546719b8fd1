package authproxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/authriver/mcp-oauth-proxy/security"
)

// SessionCookieName is the session-binding cookie set when the consent form
// is submitted. The __Host- prefix forces Secure, Path=/, and no Domain, so
// the cookie cannot be planted by a subdomain.
const SessionCookieName = "__Host-CONSENTED_STATE"

// sessionPurpose is the key-derivation purpose for the session sealer.
const sessionPurpose = "session-binding"

// sessionPayload is what the session cookie seals. The state token ties the
// browser that submitted the consent form to the callback that follows.
type sessionPayload struct {
	StateToken string `json:"state_token"`
	IssuedAt   int64  `json:"iat"`
}

// sessionBinder seals state tokens into the session-binding cookie and
// verifies them on callback.
type sessionBinder struct {
	sealer *security.Sealer
	maxAge time.Duration
}

func newSessionBinder(masterKey []byte, maxAge time.Duration) (*sessionBinder, error) {
	sealer, err := security.NewSealer(masterKey, sessionPurpose)
	if err != nil {
		return nil, fmt.Errorf("failed to create session sealer: %w", err)
	}
	return &sessionBinder{sealer: sealer, maxAge: maxAge}, nil
}

// Bind seals the state token into a session cookie.
func (b *sessionBinder) Bind(stateToken string) (*http.Cookie, error) {
	payload, err := json.Marshal(sessionPayload{
		StateToken: stateToken,
		IssuedAt:   time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session payload: %w", err)
	}

	sealed, err := b.sealer.Seal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to seal session payload: %w", err)
	}

	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(b.maxAge.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Verify checks that the request carries a session cookie sealed over the
// given state token and that it has not outlived its maximum age. Callers
// must coalesce any returned error with state-store errors before
// responding; the distinction is for logs only.
func (b *sessionBinder) Verify(r *http.Request, stateToken string) error {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return fmt.Errorf("session cookie missing")
	}

	opened, err := b.sealer.Open(cookie.Value)
	if err != nil {
		return fmt.Errorf("session cookie invalid")
	}

	var payload sessionPayload
	if err := json.Unmarshal(opened, &payload); err != nil {
		return fmt.Errorf("session payload malformed")
	}

	if payload.StateToken == "" || payload.StateToken != stateToken {
		return fmt.Errorf("session cookie bound to a different state")
	}

	issuedAt := time.Unix(payload.IssuedAt, 0)
	if security.IsExpired(issuedAt.Add(b.maxAge)) {
		return fmt.Errorf("session cookie expired")
	}

	return nil
}

// ClearCookie returns a cookie that deletes the session binding. Set on
// every callback response, success or failure.
func (b *sessionBinder) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
