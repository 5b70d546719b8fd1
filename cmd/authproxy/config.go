package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment overrides. AUTHPROXY_SERVER__ISSUER
// maps to server.issuer; double underscores delimit nesting.
const envPrefix = "AUTHPROXY_"

// daemonConfig is the file/env configuration of the daemon. Library-level
// configuration (authproxy.Config) is built from it in serve.go.
type daemonConfig struct {
	Server struct {
		Listen    string        `koanf:"listen"`
		Issuer    string        `koanf:"issuer"`
		CookieKey string        `koanf:"cookie_key"` // base64, 32 bytes decoded
		StateTTL  time.Duration `koanf:"state_ttl"`
		TokenTTL  time.Duration `koanf:"token_ttl"`
		Name      string        `koanf:"name"`
		Desc      string        `koanf:"description"`
		LogoURL   string        `koanf:"logo_url"`
	} `koanf:"server"`

	GitHub struct {
		ClientID     string `koanf:"client_id"`
		ClientSecret string `koanf:"client_secret"`
	} `koanf:"github"`

	Storage struct {
		// Backend is "memory" or "valkey".
		Backend string `koanf:"backend"`
		Valkey  struct {
			Address   string `koanf:"address"`
			Password  string `koanf:"password"`
			DB        int    `koanf:"db"`
			KeyPrefix string `koanf:"key_prefix"`
			TLS       bool   `koanf:"tls"`
		} `koanf:"valkey"`
	} `koanf:"storage"`

	RateLimit struct {
		Rate  int `koanf:"rate"`
		Burst int `koanf:"burst"`
	} `koanf:"rate_limit"`

	TrustProxy bool   `koanf:"trust_proxy"`
	AuditLog   bool   `koanf:"audit_log"`
	LogFormat  string `koanf:"log_format"` // "text" or "json"
}

// loadConfig layers the YAML file (when given) under AUTHPROXY_ environment
// overrides.
func loadConfig(path string) (*daemonConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// AUTHPROXY_SERVER__ISSUER -> server.issuer
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	cfg := &daemonConfig{}
	cfg.Server.Listen = ":8080"
	cfg.Storage.Backend = "memory"
	cfg.LogFormat = "text"

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
