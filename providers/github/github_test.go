package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const (
	testAccessToken  = "test-access-token"
	testClientID     = "test-client-id"
	testClientSecret = "test-client-secret"
	testCallbackURL  = "https://example.com/callback"
)

// apiTransport redirects api.github.com requests to the test server.
type apiTransport struct {
	server *httptest.Server
}

func (m *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.Contains(req.URL.Host, "api.github.com") {
		testURL, _ := url.Parse(m.server.URL + req.URL.Path)
		req.URL = testURL
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				ClientID:     testClientID,
				ClientSecret: testClientSecret,
				RedirectURL:  testCallbackURL,
			},
			wantErr: false,
		},
		{
			name: "missing client ID",
			config: &Config{
				ClientSecret: testClientSecret,
			},
			wantErr: true,
		},
		{
			name: "missing client secret",
			config: &Config{
				ClientID: testClientID,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProvider_Name(t *testing.T) {
	provider, err := NewProvider(&Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if got := provider.Name(); got != "github" {
		t.Errorf("Name() = %q, want %q", got, "github")
	}
}

func TestProvider_DefaultScopes(t *testing.T) {
	provider, err := NewProvider(&Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	want := []string{"read:user", "user:email"}
	if len(provider.Scopes) != len(want) {
		t.Fatalf("default scopes = %v, want %v", provider.Scopes, want)
	}
	for i, s := range want {
		if provider.Scopes[i] != s {
			t.Errorf("scope[%d] = %q, want %q", i, provider.Scopes[i], s)
		}
	}
}

func TestProvider_AuthorizationURL(t *testing.T) {
	provider, err := NewProvider(&Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testCallbackURL,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	authURL := provider.AuthorizationURL("test-state-token")

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if parsed.Host != "github.com" {
		t.Errorf("host = %q, want github.com", parsed.Host)
	}

	q := parsed.Query()
	if q.Get("state") != "test-state-token" {
		t.Errorf("state = %q, want %q", q.Get("state"), "test-state-token")
	}
	if q.Get("client_id") != testClientID {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), testClientID)
	}
	if q.Get("redirect_uri") != testCallbackURL {
		t.Errorf("redirect_uri = %q, want %q", q.Get("redirect_uri"), testCallbackURL)
	}
	if !strings.Contains(q.Get("scope"), "user:email") {
		t.Errorf("scope = %q, missing user:email", q.Get("scope"))
	}
}

func TestProvider_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": testAccessToken,
			"token_type":   "bearer",
		})
	}))
	defer server.Close()

	provider, err := NewProvider(&Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	provider.Endpoint.TokenURL = server.URL + "/token"

	token, err := provider.ExchangeCode(context.Background(), "test-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if token.AccessToken != testAccessToken {
		t.Errorf("AccessToken = %q, want %q", token.AccessToken, testAccessToken)
	}
}

func TestProvider_FetchUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testAccessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         12345678,
				"login":      "octocat",
				"name":       "Octo Cat",
				"email":      "octo@example.com",
				"avatar_url": "https://example.com/avatar.png",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider, err := NewProvider(&Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		HTTPClient: &http.Client{
			Transport: &apiTransport{server: server},
		},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	userInfo, err := provider.FetchUser(context.Background(), testAccessToken)
	if err != nil {
		t.Fatalf("FetchUser() error = %v", err)
	}

	if userInfo.ID != "12345678" {
		t.Errorf("ID = %q, want %q", userInfo.ID, "12345678")
	}
	if userInfo.Login != "octocat" {
		t.Errorf("Login = %q, want %q", userInfo.Login, "octocat")
	}
	if userInfo.Email != "octo@example.com" {
		t.Errorf("Email = %q, want %q", userInfo.Email, "octo@example.com")
	}
	if !userInfo.EmailVerified {
		t.Error("EmailVerified = false, want true for public profile email")
	}
}

func TestProvider_FetchUser_EmailFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user":
			// No public email on the profile
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    87654321,
				"login": "privateuser",
				"name":  "Private User",
			})
		case "/user/emails":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "secondary@example.com", "primary": false, "verified": true},
				{"email": "primary@example.com", "primary": true, "verified": true},
				{"email": "unverified@example.com", "primary": false, "verified": false},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider, err := NewProvider(&Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		HTTPClient: &http.Client{
			Transport: &apiTransport{server: server},
		},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	userInfo, err := provider.FetchUser(context.Background(), "test-token")
	if err != nil {
		t.Fatalf("FetchUser() error = %v", err)
	}

	if userInfo.Email != "primary@example.com" {
		t.Errorf("Email = %q, want primary verified email", userInfo.Email)
	}
	if !userInfo.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
}

func TestProvider_FetchUser_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, err := NewProvider(&Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		HTTPClient: &http.Client{
			Transport: &apiTransport{server: server},
		},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if _, err := provider.FetchUser(context.Background(), "bad-token"); err == nil {
		t.Error("FetchUser() with invalid token succeeded")
	}
}

func TestProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewProvider(&Config{
		ClientID:       testClientID,
		ClientSecret:   testClientSecret,
		RequestTimeout: 5 * time.Second,
		HTTPClient: &http.Client{
			Transport: &apiTransport{server: server},
		},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if err := provider.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
