package authproxy

import (
	"testing"
	"time"

	"github.com/authriver/mcp-oauth-proxy/internal/testutil"
)

func TestConfigValidate_Defaults(t *testing.T) {
	cfg := &Config{
		Issuer:    "https://proxy.example.com",
		CookieKey: testMasterKey(t),
	}
	testutil.AssertNoError(t, cfg.Validate())

	testutil.AssertEqual(t, cfg.StateTTL, DefaultStateTTL)
	testutil.AssertEqual(t, cfg.SessionTTL, DefaultSessionTTL)
	testutil.AssertEqual(t, cfg.ApprovalTTL, DefaultApprovalTTL)
	testutil.AssertEqual(t, cfg.CodeTTL, DefaultCodeTTL)
	testutil.AssertEqual(t, cfg.TokenTTL, DefaultTokenTTL)
	if cfg.Logger == nil {
		t.Error("Validate() left Logger nil")
	}
	if cfg.Metadata.Name == "" {
		t.Error("Validate() left Metadata.Name empty")
	}
}

func TestConfigValidate_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Issuer:    "https://proxy.example.com",
		CookieKey: testMasterKey(t),
		StateTTL:  5 * time.Minute,
		Metadata:  ServerMetadata{Name: "Custom"},
	}
	testutil.AssertNoError(t, cfg.Validate())

	testutil.AssertEqual(t, cfg.StateTTL, 5*time.Minute)
	testutil.AssertEqual(t, cfg.Metadata.Name, "Custom")
}

func TestConfigValidate_Rejections(t *testing.T) {
	key := testMasterKey(t)
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"missing issuer", &Config{CookieKey: key}},
		{"relative issuer", &Config{Issuer: "proxy.example.com", CookieKey: key}},
		{"missing cookie key", &Config{Issuer: "https://proxy.example.com"}},
		{"short cookie key", &Config{Issuer: "https://proxy.example.com", CookieKey: []byte("short")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertError(t, tt.cfg.Validate())
		})
	}
}
