package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with PII protection.
// Audit events are a separate sink from control flow: flow logic never
// branches on whether an event was recorded.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event
type Event struct {
	Type      string
	UserID    string
	ClientID  string
	IPAddress string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed PII
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"user_id_hash", hashForLogging(event.UserID),
		"client_id", event.ClientID,
		"ip_address", event.IPAddress,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogConsentGranted logs a successful consent-form submission
func (a *Auditor) LogConsentGranted(clientID, ipAddress string) {
	a.LogEvent(Event{
		Type:      "consent_granted",
		ClientID:  clientID,
		IPAddress: ipAddress,
	})
}

// LogAuthorizationFailure logs a failed CSRF, session-binding, or state
// check. The reason is recorded here for diagnostics; responses to the
// caller never distinguish these.
func (a *Auditor) LogAuthorizationFailure(ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      "authorization_failure",
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogApprovalCookieInvalid logs an approval cookie that was present but
// failed to open. The flow treats this the same as "not approved", but it
// is logged distinctly so cookie corruption is not mistaken for a first
// visit.
func (a *Auditor) LogApprovalCookieInvalid(ipAddress string) {
	a.LogEvent(Event{
		Type:      "approval_cookie_invalid",
		IPAddress: ipAddress,
	})
}

// LogAccessDenied logs an allowlist denial
func (a *Auditor) LogAccessDenied(userID, email, ipAddress string) {
	a.LogEvent(Event{
		Type:      "access_denied",
		UserID:    userID,
		IPAddress: ipAddress,
		Details: map[string]any{
			"email_hash": hashForLogging(email),
		},
	})
}

// LogTokenIssued logs when a downstream token is issued
func (a *Auditor) LogTokenIssued(userID, clientID, ipAddress, scope string) {
	a.LogEvent(Event{
		Type:      "token_issued",
		UserID:    userID,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Details: map[string]any{
			"scope": scope,
		},
	})
}

// LogClientRegistered logs when a new client is registered
func (a *Auditor) LogClientRegistered(clientID, ipAddress string) {
	a.LogEvent(Event{
		Type:      "client_registered",
		ClientID:  clientID,
		IPAddress: ipAddress,
	})
}

// LogRateLimitExceeded logs a rate limit violation
func (a *Auditor) LogRateLimitExceeded(ipAddress string) {
	a.LogEvent(Event{
		Type:      "rate_limit_exceeded",
		IPAddress: ipAddress,
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
