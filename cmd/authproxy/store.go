package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"

	authproxy "github.com/authriver/mcp-oauth-proxy"
	"github.com/authriver/mcp-oauth-proxy/storage/memory"
	"github.com/authriver/mcp-oauth-proxy/storage/valkey"
)

// openStores builds the storage backend named by the config. The returned
// cleanup releases backend resources.
func openStores(cfg *daemonConfig, logger *slog.Logger) (authproxy.Stores, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		store := memory.New()
		store.SetLogger(logger)
		return authproxy.Stores{
			Flow:      store,
			Token:     store,
			Client:    store,
			Allowlist: store,
		}, store.Stop, nil

	case "valkey":
		vcfg := valkey.Config{
			Address:   cfg.Storage.Valkey.Address,
			Password:  cfg.Storage.Valkey.Password,
			DB:        cfg.Storage.Valkey.DB,
			KeyPrefix: cfg.Storage.Valkey.KeyPrefix,
			Logger:    logger,
		}
		if cfg.Storage.Valkey.TLS {
			vcfg.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		store, err := valkey.New(vcfg)
		if err != nil {
			return authproxy.Stores{}, nil, fmt.Errorf("failed to connect to valkey: %w", err)
		}
		return authproxy.Stores{
			Flow:      store,
			Token:     store,
			Client:    store,
			Allowlist: store,
		}, store.Close, nil

	default:
		return authproxy.Stores{}, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newLogger builds the daemon logger in the configured format.
func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
