package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by stores. Callers match with errors.Is.
var (
	// ErrStateNotFound indicates the authorization state does not exist,
	// has expired, or was already consumed.
	ErrStateNotFound = errors.New("authorization state not found")

	// ErrCodeNotFound indicates the authorization code does not exist,
	// has expired, or was already consumed.
	ErrCodeNotFound = errors.New("authorization code not found")

	// ErrTokenNotFound indicates no record exists for the token key.
	ErrTokenNotFound = errors.New("token record not found")

	// ErrClientNotFound indicates the client ID is not registered.
	ErrClientNotFound = errors.New("client not found")

	// ErrExpired indicates a record exists but is past its expiry.
	ErrExpired = errors.New("record expired")
)

// PendingAuthRequest is the original OAuth request from the MCP client.
// It is immutable once created and is serialized both into the flow store
// and into the signed form-state blob round-tripped through the consent form.
type PendingAuthRequest struct {
	ClientID            string   `json:"client_id"`
	RedirectURI         string   `json:"redirect_uri"`
	Scope               []string `json:"scope,omitempty"`
	State               string   `json:"state,omitempty"`
	ResponseType        string   `json:"response_type,omitempty"`
	CodeChallenge       string   `json:"code_challenge,omitempty"`
	CodeChallengeMethod string   `json:"code_challenge_method,omitempty"`
}

// AuthState correlates an /authorize request to its later /callback.
// Consumed exactly once; a state token that does not exist, is expired,
// or was already consumed is never accepted.
type AuthState struct {
	StateToken string             `json:"state_token"`
	Request    PendingAuthRequest `json:"request"`
	CreatedAt  time.Time          `json:"created_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// Grant describes what a downstream token is good for.
type Grant struct {
	ClientID string   `json:"clientId"`
	Scope    []string `json:"scope"`
	// Props carries user identity properties attached at grant completion
	// (login, name, email, upstream access token).
	Props map[string]string `json:"props,omitempty"`
}

// TokenRecord is the persisted form of an opaque bearer token, keyed by
// TokenKey. It is the sole source of truth for introspection.
type TokenRecord struct {
	UserID    string    `json:"userId"`
	Grant     Grant     `json:"grant"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthorizationCode is a single-use downstream code minted after a
// successful, allowlisted callback and exchanged at the token endpoint.
type AuthorizationCode struct {
	Code        string            `json:"code"`
	ClientID    string            `json:"client_id"`
	RedirectURI string            `json:"redirect_uri"`
	Scope       []string          `json:"scope,omitempty"`
	UserID      string            `json:"user_id"`
	Props       map[string]string `json:"props,omitempty"`
	// PKCE challenge carried over from the authorization request; when set,
	// the token exchange must present a matching code_verifier.
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// Client is a registered OAuth client (RFC 7591). Clients here are public;
// they hold no secret and authenticate only by redirect URI possession.
type Client struct {
	ClientID     string    `json:"client_id"`
	ClientName   string    `json:"client_name"`
	RedirectURIs []string  `json:"redirect_uris"`
	ClientURI    string    `json:"client_uri,omitempty"`
	LogoURI      string    `json:"logo_uri,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// FlowStore persists in-flight authorization state and downstream codes.
// All methods accept context.Context for cancellation and tracing.
type FlowStore interface {
	// SaveAuthState stores the state with a TTL derived from ExpiresAt.
	SaveAuthState(ctx context.Context, state *AuthState) error

	// ConsumeAuthState atomically fetches and invalidates the state.
	// Returns ErrStateNotFound if absent, expired, or already consumed.
	// At most one concurrent caller can succeed for a given token.
	ConsumeAuthState(ctx context.Context, stateToken string) (*AuthState, error)

	// SaveAuthorizationCode stores a downstream authorization code.
	SaveAuthorizationCode(ctx context.Context, code *AuthorizationCode) error

	// ConsumeAuthorizationCode atomically fetches and invalidates a code.
	// Returns ErrCodeNotFound if absent, expired, or already consumed.
	ConsumeAuthorizationCode(ctx context.Context, code string) (*AuthorizationCode, error)
}

// TokenStore persists opaque bearer token records for introspection.
type TokenStore interface {
	// SaveTokenRecord stores a record under the given key with a TTL
	// derived from ExpiresAt.
	SaveTokenRecord(ctx context.Context, key string, rec *TokenRecord) error

	// GetTokenRecord retrieves a record. Returns ErrTokenNotFound if
	// absent. Reading never extends the record's lifetime.
	GetTokenRecord(ctx context.Context, key string) (*TokenRecord, error)

	// DeleteTokenRecord removes a record.
	DeleteTokenRecord(ctx context.Context, key string) error
}

// ClientStore manages registered OAuth clients.
type ClientStore interface {
	SaveClient(ctx context.Context, client *Client) error

	// GetClient returns ErrClientNotFound for unknown IDs.
	GetClient(ctx context.Context, clientID string) (*Client, error)
}

// AllowlistStore answers whether an email is permitted to complete
// authentication. Presence of the key means "allowed".
type AllowlistStore interface {
	IsEmailAllowed(ctx context.Context, email string) (bool, error)
	AllowEmail(ctx context.Context, email string) error
	DisallowEmail(ctx context.Context, email string) error
}
