package authproxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/authriver/mcp-oauth-proxy/security"
)

// ApprovalCookieName is the long-lived cookie remembering which clients the
// user has already approved, so repeat visits skip the consent dialog.
const ApprovalCookieName = "__Host-APPROVED_CLIENTS"

// approvalPurpose is the key-derivation purpose for the approval sealer.
const approvalPurpose = "client-approval"

// maxApprovedClients caps the approval list. Oldest entries are dropped
// first, keeping the cookie under browser size limits.
const maxApprovedClients = 20

// approvalRegistry reads and writes the sealed client-approval cookie.
// Any cookie that fails to open is treated as "nothing approved"; the
// caller decides whether that is worth an audit event.
type approvalRegistry struct {
	sealer *security.Sealer
	maxAge time.Duration
}

func newApprovalRegistry(masterKey []byte, maxAge time.Duration) (*approvalRegistry, error) {
	sealer, err := security.NewSealer(masterKey, approvalPurpose)
	if err != nil {
		return nil, fmt.Errorf("failed to create approval sealer: %w", err)
	}
	return &approvalRegistry{sealer: sealer, maxAge: maxAge}, nil
}

// approvedClients reads the approval list from the request cookie.
// The second return reports whether a cookie was present but unreadable
// (tampered, key rotation, cross-purpose); the list is empty in that case.
func (a *approvalRegistry) approvedClients(r *http.Request) (clients []string, invalid bool) {
	cookie, err := r.Cookie(ApprovalCookieName)
	if err != nil {
		return nil, false
	}

	opened, err := a.sealer.Open(cookie.Value)
	if err != nil {
		return nil, true
	}

	if err := json.Unmarshal(opened, &clients); err != nil {
		return nil, true
	}
	return clients, false
}

// IsApproved reports whether the client was previously approved by this
// browser. invalid reports an unreadable cookie, logged distinctly from a
// first visit.
func (a *approvalRegistry) IsApproved(r *http.Request, clientID string) (approved, invalid bool) {
	clients, invalid := a.approvedClients(r)
	for _, c := range clients {
		if c == clientID {
			return true, invalid
		}
	}
	return false, invalid
}

// Approve returns a refreshed approval cookie with the client appended.
// Existing entries are preserved; duplicates are not added.
func (a *approvalRegistry) Approve(r *http.Request, clientID string) (*http.Cookie, error) {
	clients, _ := a.approvedClients(r)

	found := false
	for _, c := range clients {
		if c == clientID {
			found = true
			break
		}
	}
	if !found {
		clients = append(clients, clientID)
	}

	// Drop oldest entries beyond the cap
	if len(clients) > maxApprovedClients {
		clients = clients[len(clients)-maxApprovedClients:]
	}

	payload, err := json.Marshal(clients)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal approval list: %w", err)
	}

	sealed, err := a.sealer.Seal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to seal approval list: %w", err)
	}

	return &http.Cookie{
		Name:     ApprovalCookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(a.maxAge.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
