package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"atrium-hq/vestibule/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "atrium",
	Short: "Atrium Vestibule - multi-tenant HTTP front end",
	Long: `Atrium Vestibule is an open-source HTTP front end that serves many
virtual hosts from a single process.

It terminates TLS with per-host SNI certificate selection and routes
requests by (hostname, port) and longest path prefix, providing:
  - Static file serving with index and SPA fallback
  - Reverse proxying to upstream services
  - Fixed status responses and per-host error pages
  - HTTP/1.1, HTTP/2, and HTTP/3 listeners
  - Access logging with queryable SQLite storage

For more information, visit: https://github.com/atrium-hq/vestibule`,
	Version: Version,
}

// Execute runs the root command and exits with the code carried by
// the returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
