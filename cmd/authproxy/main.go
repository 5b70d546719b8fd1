// Command authproxy runs the MCP OAuth proxy daemon and its admin
// subcommands.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version can be set during build with -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "authproxy",
	Short: "OAuth authorization proxy for MCP servers",
	Long: `authproxy sits in front of an MCP server, delegates user
authentication to an upstream identity provider, gates access with an
email allowlist, and issues opaque bearer tokens verifiable through
RFC 7662 introspection.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the YAML config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAllowlistCmd())
	rootCmd.AddCommand(newKeygenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
