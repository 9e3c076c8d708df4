package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atrium-hq/vestibule/pkg/cli"
	sectls "atrium-hq/vestibule/pkg/security/tls"
)

var certsValidateFlags struct {
	certFile string
	keyFile  string
	caFile   string
}

var certsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a certificate, key, and chain",
	Long: `Check that a certificate is usable as a virtual host identity.

Runs the same checks the server applies when it loads a host's TLS
files: the key must belong to the certificate, the certificate must
not be expired, and, when --ca is given, the chain must verify for
server authentication. A warning is printed when fewer than 30 days
of validity remain.

Examples:
  # Check the pair a host entry points at
  atrium certs validate --cert certs/cert.pem --key certs/key.pem

  # Also verify the chain against an internal CA
  atrium certs validate --cert certs/cert.pem --key certs/key.pem \
    --ca ca.pem`,
	RunE: validateIdentity,
}

func init() {
	certsCmd.AddCommand(certsValidateCmd)

	certsValidateCmd.Flags().StringVar(&certsValidateFlags.certFile, "cert", "", "certificate file (required)")
	certsValidateCmd.Flags().StringVar(&certsValidateFlags.keyFile, "key", "", "private key file")
	certsValidateCmd.Flags().StringVar(&certsValidateFlags.caFile, "ca", "", "CA certificate file")

	_ = certsValidateCmd.MarkFlagRequired("cert")
}

func validateIdentity(cmd *cobra.Command, args []string) error {
	status := cli.NewStatus(os.Stdout)
	status.Info("Checking %s", certsValidateFlags.certFile)
	status.Blank()

	cert, err := readLeafCertificate(certsValidateFlags.certFile)
	if err != nil {
		return cli.NewCommandError("certs validate", err)
	}

	if certsValidateFlags.keyFile != "" {
		if _, err := tls.LoadX509KeyPair(certsValidateFlags.certFile, certsValidateFlags.keyFile); err != nil {
			status.Fail("Key does not match the certificate")
			return cli.NewCommandError("certs validate", err)
		}
		status.Step("Key pair matches")
	}

	if certsValidateFlags.caFile != "" {
		if err := verifyAgainstCA(cert, certsValidateFlags.caFile); err != nil {
			status.Fail("Chain does not verify")
			return cli.NewCommandError("certs validate", err)
		}
		status.Step("Chain verifies against CA")
	}

	if time.Now().After(cert.NotAfter) {
		status.Fail("Expired on %s", cert.NotAfter.Format("2006-01-02"))
		return cli.NewCommandError("certs validate", fmt.Errorf("certificate expired"))
	}
	status.Step("Valid until %s", cert.NotAfter.Format("2006-01-02"))

	if days, warning := sectls.CheckCertificateExpiration(cert); warning != "" {
		status.Warn("Expires in %d days", days)
	}

	status.Blank()
	status.Info("Subject: %s", cert.Subject.CommonName)
	status.Info("Issuer:  %s", cert.Issuer.CommonName)
	if len(cert.DNSNames) > 0 {
		status.Info("Serves:  %s", strings.Join(cert.DNSNames, ", "))
	}
	for _, ip := range cert.IPAddresses {
		status.Info("         %s", ip)
	}

	return nil
}

// verifyAgainstCA checks the certificate chain for server
// authentication against the CAs in caFile.
func verifyAgainstCA(cert *x509.Certificate, caFile string) error {
	caPEM, err := os.ReadFile(caFile)
	if err != nil {
		return fmt.Errorf("reading CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return fmt.Errorf("%s: no CA certificates found", caFile)
	}
	return sectls.ValidateCertificateChain(cert, pool)
}
