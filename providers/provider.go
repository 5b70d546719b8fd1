// Package providers defines the interface for upstream OAuth identity
// providers and holds the provider-specific implementations.
package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider is an upstream identity provider the proxy delegates
// authentication to. Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the provider name (e.g. "github").
	Name() string

	// AuthorizationURL generates the URL to redirect users to for
	// authentication, carrying the given state token.
	AuthorizationURL(state string) string

	// ExchangeCode exchanges an authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUser retrieves the authenticated user's identity using the
	// provider access token.
	FetchUser(ctx context.Context, accessToken string) (*UserInfo, error)

	// HealthCheck verifies that the provider is reachable. Useful for
	// readiness probes and startup validation.
	HealthCheck(ctx context.Context) error
}

// UserInfo is the identity a provider reports for an authenticated user.
type UserInfo struct {
	// ID is the unique user identifier from the provider.
	ID string

	// Login is the provider-side username, when the provider has one.
	Login string

	// Email is the user's email address.
	Email string

	// EmailVerified indicates whether the provider verified the email.
	EmailVerified bool

	// Name is the user's display name.
	Name string

	// AvatarURL is the URL of the user's profile picture.
	AvatarURL string
}
