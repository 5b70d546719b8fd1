package main

import (
	"fmt"

	"github.com/spf13/cobra"

	authproxy "github.com/authriver/mcp-oauth-proxy"
)

// withStores loads the daemon config, opens the configured storage backend,
// runs fn, and releases the backend.
func withStores(cmd *cobra.Command, fn func(authproxy.Stores) error) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	stores, cleanup, err := openStores(cfg, newLogger(cfg.LogFormat))
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(stores)
}

func newAllowlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowlist",
		Short: "Manage the email allowlist",
		Long: `Manage the set of emails permitted to complete authentication.
Only users whose verified email is on the allowlist can obtain tokens.
The memory backend forgets the allowlist on restart; use the valkey
backend for a persistent list.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <email>",
			Short: "Allow an email to complete authentication",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStores(cmd, func(s authproxy.Stores) error {
					if err := s.Allowlist.AllowEmail(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "allowed %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <email>",
			Short: "Remove an email from the allowlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStores(cmd, func(s authproxy.Stores) error {
					if err := s.Allowlist.DisallowEmail(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "check <email>",
			Short: "Check whether an email is allowed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStores(cmd, func(s authproxy.Stores) error {
					allowed, err := s.Allowlist.IsEmailAllowed(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if allowed {
						fmt.Fprintf(cmd.OutOrStdout(), "%s is allowed\n", args[0])
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s is not allowed\n", args[0])
					}
					return nil
				})
			},
		},
	)
	return cmd
}
