// Package mock provides a mock implementation of the Provider interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/authriver/mcp-oauth-proxy/providers"
)

// Compile-time check that MockProvider implements the providers.Provider interface.
var _ providers.Provider = (*MockProvider)(nil)

// MockProvider is a configurable mock implementation of the Provider interface.
type MockProvider struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// AuthorizationURLFunc is called when AuthorizationURL() is invoked
	AuthorizationURLFunc func(state string) string

	// ExchangeCodeFunc is called when ExchangeCode() is invoked
	ExchangeCodeFunc func(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserFunc is called when FetchUser() is invoked
	FetchUserFunc func(ctx context.Context, accessToken string) (*providers.UserInfo, error)

	// HealthCheckFunc is called when HealthCheck() is invoked
	HealthCheckFunc func(ctx context.Context) error

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	// mu protects CallCounts from concurrent access
	mu sync.Mutex
}

// NewMockProvider creates a new mock provider with default implementations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		AuthorizationURLFunc: func(state string) string {
			return "https://mock.example.com/authorize?state=" + state
		},
		ExchangeCodeFunc: func(ctx context.Context, code string) (*oauth2.Token, error) {
			return &oauth2.Token{
				AccessToken: "mock-access-token",
				TokenType:   "Bearer",
			}, nil
		},
		FetchUserFunc: func(ctx context.Context, accessToken string) (*providers.UserInfo, error) {
			return &providers.UserInfo{
				ID:            "mock-user-123",
				Login:         "mockuser",
				Email:         "mock@example.com",
				EmailVerified: true,
				Name:          "Mock User",
			}, nil
		},
		HealthCheckFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	// Release the lock before calling the user function; it might call
	// other mock methods.
	m.mu.Lock()
	m.CallCounts["Name"]++
	fn := m.NameFunc
	m.mu.Unlock()

	if fn == nil {
		return "mock"
	}
	return fn()
}

// AuthorizationURL generates the URL to redirect users for authentication.
func (m *MockProvider) AuthorizationURL(state string) string {
	m.mu.Lock()
	m.CallCounts["AuthorizationURL"]++
	fn := m.AuthorizationURLFunc
	m.mu.Unlock()
	if fn == nil {
		return "https://mock.example.com/authorize?state=" + state
	}
	return fn(state)
}

// ExchangeCode exchanges an authorization code for tokens.
func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	m.mu.Lock()
	m.CallCounts["ExchangeCode"]++
	fn := m.ExchangeCodeFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("ExchangeCodeFunc not configured")
	}
	return fn(ctx, code)
}

// FetchUser retrieves the mock user identity.
func (m *MockProvider) FetchUser(ctx context.Context, accessToken string) (*providers.UserInfo, error) {
	m.mu.Lock()
	m.CallCounts["FetchUser"]++
	fn := m.FetchUserFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("FetchUserFunc not configured")
	}
	return fn(ctx, accessToken)
}

// HealthCheck reports the mock provider as healthy unless configured otherwise.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.CallCounts["HealthCheck"]++
	fn := m.HealthCheckFunc
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// CallCount returns how many times the named method was invoked.
func (m *MockProvider) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCounts[method]
}
