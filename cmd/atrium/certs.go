package main

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sectls "atrium-hq/vestibule/pkg/security/tls"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage virtual host TLS identities",
	Long: `Manage the TLS identities virtual hosts present during SNI selection.

Every TLS-enabled host in config.yaml points at a certificate and key
pair. The certs subcommands generate throwaway identities for local
development, inspect the PEM files a host is configured with, and
check that a pair is usable before the server loads it.

Subcommands:
  generate - Create a self-signed identity for development
  info     - Show the contents of a certificate file
  validate - Check a certificate, key, and chain

Examples:
  # Create an identity for a local host entry
  atrium certs generate --host dev.local

  # Inspect the certificate a host serves
  atrium certs info certs/cert.pem

  # Check a pair before pointing config.yaml at it
  atrium certs validate --cert certs/cert.pem --key certs/key.pem`,
}

func init() {
	rootCmd.AddCommand(certsCmd)
}

// readLeafCertificate parses the first certificate block in a PEM file.
func readLeafCertificate(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cert, err := sectls.ParseCertificatePEM(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cert, nil
}
