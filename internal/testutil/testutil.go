package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/authriver/mcp-oauth-proxy/providers"
	"github.com/authriver/mcp-oauth-proxy/storage"
)

// GenerateRandomString generates a random base64url-encoded string.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// TestClient creates a registered public client fixture.
func TestClient() *storage.Client {
	return &storage.Client{
		ClientID:     "test-client-id",
		ClientName:   "Test Client",
		RedirectURIs: []string{"https://client.example.com/callback"},
		CreatedAt:    time.Now(),
	}
}

// TestUserInfo creates an allowlisted user fixture.
func TestUserInfo() *providers.UserInfo {
	return &providers.UserInfo{
		ID:            "test-user-123",
		Login:         "testuser",
		Email:         "test@example.com",
		EmailVerified: true,
		Name:          "Test User",
	}
}

// TestAuthState creates a pending authorization state fixture.
func TestAuthState() *storage.AuthState {
	now := time.Now()
	return &storage.AuthState{
		StateToken: GenerateRandomString(32),
		Request: storage.PendingAuthRequest{
			ClientID:     "test-client-id",
			RedirectURI:  "https://client.example.com/callback",
			Scope:        []string{"read", "write"},
			State:        "client-state-xyz",
			ResponseType: "code",
		},
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

// TestAuthorizationCode creates a downstream authorization code fixture.
func TestAuthorizationCode() *storage.AuthorizationCode {
	now := time.Now()
	return &storage.AuthorizationCode{
		Code:        GenerateRandomString(32),
		ClientID:    "test-client-id",
		RedirectURI: "https://client.example.com/callback",
		Scope:       []string{"read", "write"},
		UserID:      "test-user-123",
		Props: map[string]string{
			"email": "test@example.com",
			"login": "testuser",
		},
		CreatedAt: now,
		ExpiresAt: now.Add(2 * time.Minute),
	}
}

// TestTokenRecord creates a persisted token record fixture.
func TestTokenRecord() *storage.TokenRecord {
	now := time.Now()
	return &storage.TokenRecord{
		UserID: "test-user-123",
		Grant: storage.Grant{
			ClientID: "test-client-id",
			Scope:    []string{"read", "write"},
			Props: map[string]string{
				"email": "test@example.com",
			},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertStringContains fails the test if s does not contain substr.
func AssertStringContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("string %q does not contain %q", s, substr)
	}
}
