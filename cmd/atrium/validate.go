package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"atrium-hq/vestibule/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a Vestibule configuration file without starting the server.

The validate command loads the configuration, applies defaults and
environment overrides, and runs the full validation pass. Every problem
is reported, not just the first: duplicate listeners, duplicate virtual
hosts, ports mixing TLS and plaintext, multiple default TLS hosts on one
port, HTTP/3 listeners without a TLS host, and malformed routes.

Examples:
  # Validate the default config file
  atrium validate

  # Validate a specific file
  atrium validate --config /etc/atrium/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ Configuration invalid (%d errors):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s\n", fe.Error())
			}
			return fmt.Errorf("validation failed")
		}
		return err
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  Listeners: %d\n", len(cfg.Server.Listeners))
	fmt.Printf("  Virtual hosts: %d\n", len(cfg.Hosts))

	tlsHosts := 0
	routes := 0
	for _, h := range cfg.Hosts {
		if h.TLS != nil {
			tlsHosts++
		}
		routes += len(h.Routes)
	}
	fmt.Printf("  TLS hosts: %d\n", tlsHosts)
	fmt.Printf("  Routes: %d\n", routes)

	return nil
}
