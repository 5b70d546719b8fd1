package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/authriver/mcp-oauth-proxy/storage"
)

func testState(token string, ttl time.Duration) *storage.AuthState {
	now := time.Now()
	return &storage.AuthState{
		StateToken: token,
		Request: storage.PendingAuthRequest{
			ClientID:    "test-client",
			RedirectURI: "https://client.example.com/callback",
			Scope:       []string{"read", "write"},
			State:       "client-state-123",
		},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestConsumeAuthState_RoundTrip(t *testing.T) {
	s := New()
	defer s.Stop()
	ctx := context.Background()

	state := testState("state-token-1", 10*time.Minute)
	if err := s.SaveAuthState(ctx, state); err != nil {
		t.Fatalf("SaveAuthState() error = %v", err)
	}

	got, err := s.ConsumeAuthState(ctx, "state-token-1")
	if err != nil {
		t.Fatalf("ConsumeAuthState() error = %v", err)
	}
	if got.Request.ClientID != "test-client" {
		t.Errorf("ClientID = %q, want %q", got.Request.ClientID, "test-client")
	}
	if len(got.Request.Scope) != 2 || got.Request.Scope[0] != "read" {
		t.Errorf("Scope = %v, want [read write]", got.Request.Scope)
	}

	// Second consume must fail: the state is single-use.
	if _, err := s.ConsumeAuthState(ctx, "state-token-1"); !errors.Is(err, storage.ErrStateNotFound) {
		t.Errorf("second ConsumeAuthState() error = %v, want ErrStateNotFound", err)
	}
}

func TestConsumeAuthState_Unknown(t *testing.T) {
	s := New()
	defer s.Stop()

	if _, err := s.ConsumeAuthState(context.Background(), "no-such-token"); !errors.Is(err, storage.ErrStateNotFound) {
		t.Errorf("error = %v, want ErrStateNotFound", err)
	}
}

func TestConsumeAuthState_Expired(t *testing.T) {
	s := New()
	defer s.Stop()
	ctx := context.Background()

	// Insert a pre-expired record directly, bypassing SaveAuthState's
	// expiry check, to simulate an entry the backing store has not swept.
	state := testState("expired-token", time.Minute)
	state.ExpiresAt = time.Now().Add(-time.Minute)
	s.mu.Lock()
	s.authStates[state.StateToken] = state
	s.mu.Unlock()

	if _, err := s.ConsumeAuthState(ctx, "expired-token"); !errors.Is(err, storage.ErrStateNotFound) {
		t.Errorf("error = %v, want ErrStateNotFound", err)
	}
}

func TestSaveAuthState_AlreadyExpired(t *testing.T) {
	s := New()
	defer s.Stop()

	state := testState("t", -time.Minute)
	if err := s.SaveAuthState(context.Background(), state); err == nil {
		t.Error("SaveAuthState() with past expiry should fail")
	}
}

func TestConsumeAuthorizationCode_SingleUse(t *testing.T) {
	s := New()
	defer s.Stop()
	ctx := context.Background()

	now := time.Now()
	code := &storage.AuthorizationCode{
		Code:        "code-abc",
		ClientID:    "test-client",
		RedirectURI: "https://client.example.com/callback",
		UserID:      "octocat",
		Props:       map[string]string{"email": "octocat@example.com"},
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Minute),
	}
	if err := s.SaveAuthorizationCode(ctx, code); err != nil {
		t.Fatalf("SaveAuthorizationCode() error = %v", err)
	}

	got, err := s.ConsumeAuthorizationCode(ctx, "code-abc")
	if err != nil {
		t.Fatalf("ConsumeAuthorizationCode() error = %v", err)
	}
	if got.UserID != "octocat" || got.Props["email"] != "octocat@example.com" {
		t.Errorf("unexpected code record: %+v", got)
	}

	if _, err := s.ConsumeAuthorizationCode(ctx, "code-abc"); !errors.Is(err, storage.ErrCodeNotFound) {
		t.Errorf("second consume error = %v, want ErrCodeNotFound", err)
	}
}

func TestTokenRecords(t *testing.T) {
	s := New()
	defer s.Stop()
	ctx := context.Background()

	now := time.Now()
	rec := &storage.TokenRecord{
		UserID: "octocat",
		Grant: storage.Grant{
			ClientID: "test-client",
			Scope:    []string{"read"},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	key := storage.TokenKey("octocat", "grant-1", "octocat:grant-1:secret")
	if err := s.SaveTokenRecord(ctx, key, rec); err != nil {
		t.Fatalf("SaveTokenRecord() error = %v", err)
	}

	got, err := s.GetTokenRecord(ctx, key)
	if err != nil {
		t.Fatalf("GetTokenRecord() error = %v", err)
	}
	if got.Grant.ClientID != "test-client" {
		t.Errorf("Grant.ClientID = %q, want %q", got.Grant.ClientID, "test-client")
	}

	if err := s.DeleteTokenRecord(ctx, key); err != nil {
		t.Fatalf("DeleteTokenRecord() error = %v", err)
	}
	if _, err := s.GetTokenRecord(ctx, key); !errors.Is(err, storage.ErrTokenNotFound) {
		t.Errorf("after delete error = %v, want ErrTokenNotFound", err)
	}
}

func TestClients(t *testing.T) {
	s := New()
	defer s.Stop()
	ctx := context.Background()

	client := &storage.Client{
		ClientID:     "client-1",
		ClientName:   "Test Client",
		RedirectURIs: []string{"https://client.example.com/callback"},
		CreatedAt:    time.Now(),
	}
	if err := s.SaveClient(ctx, client); err != nil {
		t.Fatalf("SaveClient() error = %v", err)
	}

	got, err := s.GetClient(ctx, "client-1")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if got.ClientName != "Test Client" {
		t.Errorf("ClientName = %q, want %q", got.ClientName, "Test Client")
	}

	if _, err := s.GetClient(ctx, "unknown"); !errors.Is(err, storage.ErrClientNotFound) {
		t.Errorf("GetClient(unknown) error = %v, want ErrClientNotFound", err)
	}
}

func TestAllowlist(t *testing.T) {
	s := New()
	defer s.Stop()
	ctx := context.Background()

	if err := s.AllowEmail(ctx, "Alice@Example.com"); err != nil {
		t.Fatalf("AllowEmail() error = %v", err)
	}

	// Lookup is case-insensitive because keys are lowercased.
	ok, err := s.IsEmailAllowed(ctx, "alice@example.COM")
	if err != nil || !ok {
		t.Errorf("IsEmailAllowed() = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = s.IsEmailAllowed(ctx, "mallory@example.com")
	if err != nil || ok {
		t.Errorf("IsEmailAllowed(mallory) = (%v, %v), want (false, nil)", ok, err)
	}

	if err := s.DisallowEmail(ctx, "alice@example.com"); err != nil {
		t.Fatalf("DisallowEmail() error = %v", err)
	}
	ok, _ = s.IsEmailAllowed(ctx, "alice@example.com")
	if ok {
		t.Error("email still allowed after DisallowEmail")
	}
}

func TestCleanup(t *testing.T) {
	s := NewWithInterval(10 * time.Millisecond)
	defer s.Stop()

	state := testState("sweep-me", time.Minute)
	state.ExpiresAt = time.Now().Add(-time.Second)
	s.mu.Lock()
	s.authStates[state.StateToken] = state
	s.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		_, present := s.authStates["sweep-me"]
		s.mu.Unlock()
		if !present {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expired state was not swept")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
