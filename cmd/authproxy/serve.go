package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	authproxy "github.com/authriver/mcp-oauth-proxy"
	"github.com/authriver/mcp-oauth-proxy/instrumentation"
	"github.com/authriver/mcp-oauth-proxy/providers/github"
	"github.com/authriver/mcp-oauth-proxy/security"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth proxy daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *daemonConfig) error {
	logger := newLogger(cfg.LogFormat)

	cookieKey, err := security.KeyFromBase64(cfg.Server.CookieKey)
	if err != nil {
		return fmt.Errorf("invalid server.cookie_key (generate one with `authproxy keygen`): %w", err)
	}

	provider, err := github.NewProvider(&github.Config{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		RedirectURL:  cfg.Server.Issuer + "/callback",
	})
	if err != nil {
		return fmt.Errorf("failed to configure github provider: %w", err)
	}

	stores, cleanup, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := authproxy.NewServer(&authproxy.Config{
		Issuer:    cfg.Server.Issuer,
		CookieKey: cookieKey,
		StateTTL:  cfg.Server.StateTTL,
		TokenTTL:  cfg.Server.TokenTTL,
		Metadata: authproxy.ServerMetadata{
			Name:        cfg.Server.Name,
			Description: cfg.Server.Desc,
			LogoURL:     cfg.Server.LogoURL,
		},
		RateLimit: authproxy.RateLimitConfig{
			Rate:  cfg.RateLimit.Rate,
			Burst: cfg.RateLimit.Burst,
		},
		TrustProxy:         cfg.TrustProxy,
		EnableAuditLogging: cfg.AuditLog,
		Logger:             logger,
	}, stores, provider)
	if err != nil {
		return err
	}

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    "authproxy",
		ServiceVersion: rootCmd.Version,
		Enabled:        true,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = inst.Shutdown(shutdownCtx)
	}()

	handler, err := authproxy.NewHandler(server, inst)
	if err != nil {
		return err
	}
	defer handler.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Listen, "issuer", cfg.Server.Issuer,
			"provider", provider.Name(), "storage", cfg.Storage.Backend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
