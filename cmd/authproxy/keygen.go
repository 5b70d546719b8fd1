package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authriver/mcp-oauth-proxy/security"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a cookie master key",
		Long: `Generate a random 32-byte key, base64-encoded, for the
server.cookie_key setting. All cookie sealing keys are derived from it;
rotating it invalidates outstanding session and approval cookies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := security.GenerateKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), security.KeyToBase64(key))
			return nil
		},
	}
}
