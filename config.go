package authproxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/authriver/mcp-oauth-proxy/security"
)

// Default lifetimes for flow artifacts.
const (
	// DefaultStateTTL bounds how long a consent dialog may sit open.
	DefaultStateTTL = 10 * time.Minute

	// DefaultSessionTTL bounds the session-binding cookie. Kept equal to
	// the state TTL; a binding cookie has no use once its state expired.
	DefaultSessionTTL = 10 * time.Minute

	// DefaultApprovalTTL is how long a client stays pre-approved.
	DefaultApprovalTTL = 30 * 24 * time.Hour

	// DefaultCodeTTL bounds the downstream authorization code.
	DefaultCodeTTL = 2 * time.Minute

	// DefaultTokenTTL is the opaque access token lifetime.
	DefaultTokenTTL = 24 * time.Hour
)

// ServerMetadata describes the proxy itself on the consent dialog.
type ServerMetadata struct {
	// Name is shown as the dialog title (e.g. "Weather MCP Server").
	Name string

	// Description is shown under the title.
	Description string

	// LogoURL is an optional logo rendered on the dialog.
	LogoURL string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP. Zero disables limiting.
	Rate int

	// Burst is the maximum burst size allowed per IP.
	Burst int
}

// Config holds the proxy configuration. All fields with defaults may be
// left zero; Validate fills them in.
type Config struct {
	// Issuer is the externally visible base URL of this proxy (required).
	// Used for metadata documents and HSTS decisions.
	Issuer string

	// CookieKey is the 32-byte master key cookie sealers derive from
	// (required). Generate with security.GenerateKey().
	CookieKey []byte

	// StateTTL bounds the authorize-to-callback window.
	StateTTL time.Duration

	// SessionTTL bounds the session-binding cookie.
	SessionTTL time.Duration

	// ApprovalTTL bounds the client-approval cookie.
	ApprovalTTL time.Duration

	// CodeTTL bounds downstream authorization codes.
	CodeTTL time.Duration

	// TokenTTL is the opaque access token lifetime.
	TokenTTL time.Duration

	// Metadata describes the proxy on the consent dialog.
	Metadata ServerMetadata

	// RateLimit configures per-IP limiting. Zero Rate disables it.
	RateLimit RateLimitConfig

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// EnableAuditLogging enables security audit logging
	// (sensitive data hashed).
	EnableAuditLogging bool

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// HTTPClient is a custom HTTP client for outbound requests (optional).
	HTTPClient *http.Client
}

// Validate checks required fields and applies defaults in place.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("issuer is required")
	}
	parsed, err := url.Parse(c.Issuer)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("issuer must be an absolute URL")
	}
	if len(c.CookieKey) != security.MasterKeySize {
		return fmt.Errorf("cookie key must be %d bytes", security.MasterKeySize)
	}

	if c.StateTTL == 0 {
		c.StateTTL = DefaultStateTTL
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.ApprovalTTL == 0 {
		c.ApprovalTTL = DefaultApprovalTTL
	}
	if c.CodeTTL == 0 {
		c.CodeTTL = DefaultCodeTTL
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.Metadata.Name == "" {
		c.Metadata.Name = "MCP Server"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}
