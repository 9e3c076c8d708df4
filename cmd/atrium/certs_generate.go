package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atrium-hq/vestibule/pkg/cli"
)

var generateFlags struct {
	hosts    string
	org      string
	validity int
	keySize  int
	output   string
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create a self-signed identity for development",
	Long: `Create a self-signed certificate and key for a virtual host.

The generated pair is meant for local development of a host entry:
point the host's tls.cert_file and tls.key_file at the written files
and the server will present the identity during SNI selection. Names
in --host become DNS or IP Subject Alternative Names; browsers and
clients will not trust the identity without extra configuration.

Examples:
  # Identity for a single local host
  atrium certs generate --host dev.local

  # Identity covering several names and the loopback address
  atrium certs generate --host "dev.local,api.dev.local,127.0.0.1"

  # Longer validity, larger key, custom directory
  atrium certs generate --host dev.local --validity 730 \
    --key-size 4096 --output /etc/atrium/certs/`,
	RunE: generateIdentity,
}

func init() {
	certsCmd.AddCommand(certsGenerateCmd)

	certsGenerateCmd.Flags().StringVar(&generateFlags.hosts, "host", "localhost", "comma-separated hostnames and IPs")
	certsGenerateCmd.Flags().StringVar(&generateFlags.org, "org", "Atrium", "organization name")
	certsGenerateCmd.Flags().IntVar(&generateFlags.validity, "validity", 365, "validity in days")
	certsGenerateCmd.Flags().IntVar(&generateFlags.keySize, "key-size", 2048, "RSA key size (2048, 3072, 4096)")
	certsGenerateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "certs", "output directory")
}

var allowedKeySizes = map[int]bool{2048: true, 3072: true, 4096: true}

func generateIdentity(cmd *cobra.Command, args []string) error {
	if !allowedKeySizes[generateFlags.keySize] {
		return cli.NewConfigError("key-size",
			fmt.Sprintf("%d not supported (use 2048, 3072, or 4096)", generateFlags.keySize))
	}

	dnsNames, ipAddrs := splitSANs(generateFlags.hosts)
	if len(dnsNames) == 0 && len(ipAddrs) == 0 {
		return cli.NewConfigError("host", "no hostnames or addresses given")
	}

	status := cli.NewStatus(os.Stdout)
	status.Info("Generating identity for %s", generateFlags.hosts)

	key, err := rsa.GenerateKey(rand.Reader, generateFlags.keySize)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	status.Step("%d-bit RSA key generated", generateFlags.keySize)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generating serial: %w", err)
	}

	var commonName string
	if len(dnsNames) > 0 {
		commonName = dnsNames[0]
	} else {
		commonName = ipAddrs[0].String()
	}

	notBefore := time.Now()
	notAfter := notBefore.AddDate(0, 0, generateFlags.validity)
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{generateFlags.org},
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddrs,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("creating certificate: %w", err)
	}

	if err := os.MkdirAll(generateFlags.output, 0750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	certPath := filepath.Join(generateFlags.output, "cert.pem")
	keyPath := filepath.Join(generateFlags.output, "key.pem")

	if err := writePEM(certPath, "CERTIFICATE", der, 0644); err != nil {
		return err
	}
	// The key file must only be readable by the server's user.
	if err := writePEM(keyPath, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key), 0600); err != nil {
		return err
	}

	status.Step("Certificate written: %s", certPath)
	status.Step("Key written: %s (mode 0600)", keyPath)
	status.Info("Valid %s through %s",
		notBefore.Format("2006-01-02"), notAfter.Format("2006-01-02"))
	status.Blank()

	status.Warn("Self-signed identities are for development only")
	status.Blank()
	status.Info("Host entry for config.yaml:")
	status.Info("hosts:")
	status.Info("  - hostname: %s", commonName)
	status.Info("    port: 8443")
	status.Info("    tls:")
	status.Info("      cert_file: %q", certPath)
	status.Info("      key_file: %q", keyPath)

	return nil
}

// splitSANs separates a comma-separated host list into DNS names and
// IP addresses.
func splitSANs(hosts string) ([]string, []net.IP) {
	var dnsNames []string
	var ipAddrs []net.IP
	for _, h := range strings.Split(hosts, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			ipAddrs = append(ipAddrs, ip)
		} else {
			dnsNames = append(dnsNames, h)
		}
	}
	return dnsNames, ipAddrs
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
