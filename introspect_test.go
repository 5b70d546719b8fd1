package authproxy

import (
	"context"
	"testing"
	"time"

	"github.com/authriver/mcp-oauth-proxy/internal/testutil"
	"github.com/authriver/mcp-oauth-proxy/storage"
)

// issueToken mints a token directly through the store, returning the opaque
// token string.
func issueToken(t *testing.T, store storage.TokenStore, rec *storage.TokenRecord) string {
	t.Helper()
	grantID := testutil.GenerateRandomString(16)
	secret := testutil.GenerateRandomString(32)
	token := rec.UserID + ":" + grantID + ":" + secret
	key := storage.TokenKey(rec.UserID, grantID, token)
	if err := store.SaveTokenRecord(context.Background(), key, rec); err != nil {
		t.Fatalf("SaveTokenRecord() error = %v", err)
	}
	return token
}

func TestIntrospect_ActiveToken(t *testing.T) {
	server, store, _ := newTestServer(t)
	rec := testutil.TestTokenRecord()
	token := issueToken(t, store, rec)

	resp := server.Introspect(context.Background(), token)

	if !resp.Active {
		t.Fatal("Active = false for a valid token")
	}
	testutil.AssertEqual(t, resp.Sub, rec.UserID)
	testutil.AssertEqual(t, resp.ClientID, rec.Grant.ClientID)
	testutil.AssertEqual(t, resp.Scope, "read write")
	testutil.AssertEqual(t, resp.TokenType, "Bearer")
	testutil.AssertEqual(t, resp.Exp, rec.ExpiresAt.Unix())
	testutil.AssertEqual(t, resp.Iat, rec.CreatedAt.Unix())
}

func TestIntrospect_InactiveTokens(t *testing.T) {
	server, store, _ := newTestServer(t)
	ctx := context.Background()

	expired := testutil.TestTokenRecord()
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	expiredToken := issueToken(t, store, expired)

	// Expiry is strict: a token one second past exp is inactive even though
	// cookie checks would still grant clock-skew grace
	justExpired := testutil.TestTokenRecord()
	justExpired.ExpiresAt = time.Now().Add(-time.Second)
	justExpiredToken := issueToken(t, store, justExpired)

	valid := issueToken(t, store, testutil.TestTokenRecord())

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed two parts", "user:grant"},
		{"malformed four parts", "user:grant:secret:extra"},
		{"empty middle part", "user::secret"},
		{"unknown token", "user:grant:never-issued"},
		{"wrong secret", valid + "x"},
		{"expired record", expiredToken},
		{"record expired within skew grace", justExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := server.Introspect(ctx, tt.token)
			if resp.Active {
				t.Error("Active = true")
			}
			// Inactive responses carry no identifying fields
			if resp.Sub != "" || resp.ClientID != "" || resp.Scope != "" || resp.Exp != 0 {
				t.Errorf("inactive response leaks fields: %+v", resp)
			}
		})
	}
}

func TestIntrospect_SideEffectFree(t *testing.T) {
	server, store, _ := newTestServer(t)
	ctx := context.Background()
	token := issueToken(t, store, testutil.TestTokenRecord())

	first := server.Introspect(ctx, token)
	second := server.Introspect(ctx, token)

	if !first.Active || !second.Active {
		t.Fatal("repeated introspection deactivated the token")
	}
	// Reading must not extend the lifetime
	testutil.AssertEqual(t, second.Exp, first.Exp)
}

func TestIntrospect_UserBindingMismatch(t *testing.T) {
	server, store, _ := newTestServer(t)
	ctx := context.Background()

	// A record stored under one user's key but claiming another user must
	// not introspect as active
	rec := testutil.TestTokenRecord()
	rec.UserID = "someone-else"
	grantID := testutil.GenerateRandomString(16)
	secret := testutil.GenerateRandomString(32)
	token := "test-user-123:" + grantID + ":" + secret
	key := storage.TokenKey("test-user-123", grantID, token)
	if err := store.SaveTokenRecord(ctx, key, rec); err != nil {
		t.Fatalf("SaveTokenRecord() error = %v", err)
	}

	if server.Introspect(ctx, token).Active {
		t.Error("Active = true for a record bound to a different user")
	}
}
