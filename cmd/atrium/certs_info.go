package main

import (
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atrium-hq/vestibule/pkg/cli"
	sectls "atrium-hq/vestibule/pkg/security/tls"
)

var infoFlags struct {
	format string
}

var certsInfoCmd = &cobra.Command{
	Use:   "info [cert-file]",
	Short: "Show the contents of a certificate file",
	Long: `Show the identity a certificate file would present.

Reads a PEM certificate and reports the subject, the names it covers
(the SNI values it will be selected for), the validity window, and
the algorithms in use. With --format json the report is machine
readable for scripting.

Examples:
  # Inspect the certificate a host entry points at
  atrium certs info certs/cert.pem

  # JSON report for scripting
  atrium certs info --format json certs/cert.pem`,
	Args: cobra.ExactArgs(1),
	RunE: showCertInfo,
}

func init() {
	certsCmd.AddCommand(certsInfoCmd)

	certsInfoCmd.Flags().StringVar(&infoFlags.format, "format", "text", "output format: text, json")
}

// certReport is the structured form of a certificate inspection,
// shared by the text and JSON renderings.
type certReport struct {
	File       string   `json:"file"`
	Subject    string   `json:"subject"`
	Issuer     string   `json:"issuer"`
	SelfSigned bool     `json:"self_signed"`
	Serial     string   `json:"serial"`
	NotBefore  string   `json:"not_before"`
	NotAfter   string   `json:"not_after"`
	Expired    bool     `json:"expired"`
	DaysLeft   int      `json:"days_left"`
	DNSNames   []string `json:"dns_names,omitempty"`
	IPs        []string `json:"ip_addresses,omitempty"`
	KeyUsage   []string `json:"key_usage,omitempty"`
	ExtUsage   []string `json:"ext_key_usage,omitempty"`
	SigAlg     string   `json:"signature_algorithm"`
	PubKeyAlg  string   `json:"public_key_algorithm"`
	IsCA       bool     `json:"is_ca"`
}

func showCertInfo(cmd *cobra.Command, args []string) error {
	cert, err := readLeafCertificate(args[0])
	if err != nil {
		return cli.NewCommandError("certs info", err)
	}

	report := buildCertReport(args[0], cert)

	switch infoFlags.format {
	case "json":
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, report)
	case "text":
		printCertReport(os.Stdout, report)
		return nil
	default:
		return cli.NewConfigError("format", fmt.Sprintf("unsupported format %q", infoFlags.format))
	}
}

func buildCertReport(file string, cert *x509.Certificate) certReport {
	info := sectls.ExtractCertificateInfo(cert)
	daysLeft, _ := sectls.CheckCertificateExpiration(cert)

	return certReport{
		File:       file,
		Subject:    info.Subject,
		Issuer:     info.Issuer,
		SelfSigned: cert.Subject.String() == cert.Issuer.String(),
		Serial:     info.SerialNumber,
		NotBefore:  info.NotBefore.Format(time.RFC3339),
		NotAfter:   info.NotAfter.Format(time.RFC3339),
		Expired:    time.Now().After(cert.NotAfter),
		DaysLeft:   daysLeft,
		DNSNames:   info.DNSNames,
		IPs:        info.IPAddresses,
		KeyUsage:   keyUsageNames(cert.KeyUsage),
		ExtUsage:   extKeyUsageNames(cert.ExtKeyUsage),
		SigAlg:     info.SignatureAlgorithm,
		PubKeyAlg:  info.PublicKeyAlgorithm,
		IsCA:       cert.IsCA,
	}
}

func printCertReport(out *os.File, r certReport) {
	status := cli.NewStatus(out)

	status.Info("Certificate: %s", r.File)
	status.Blank()
	status.Info("Subject:   %s", r.Subject)
	status.Info("Issuer:    %s", r.Issuer)
	if r.SelfSigned {
		status.Info("           (self-signed)")
	}
	status.Info("Serial:    %s", r.Serial)
	status.Info("Validity:  %s through %s", r.NotBefore, r.NotAfter)

	switch {
	case r.Expired:
		status.Fail("Expired")
	case r.DaysLeft < 30:
		status.Warn("Expires in %d days", r.DaysLeft)
	default:
		status.Step("Valid (%d days remaining)", r.DaysLeft)
	}

	if len(r.DNSNames) > 0 || len(r.IPs) > 0 {
		status.Blank()
		status.Info("Serves SNI names:")
		for _, name := range r.DNSNames {
			status.Info("  - %s", name)
		}
		for _, ip := range r.IPs {
			status.Info("  - %s", ip)
		}
	}

	status.Blank()
	if len(r.KeyUsage) > 0 {
		status.Info("Key usage: %s", strings.Join(r.KeyUsage, ", "))
	}
	if len(r.ExtUsage) > 0 {
		status.Info("Extended:  %s", strings.Join(r.ExtUsage, ", "))
	}
	status.Info("Signature: %s", r.SigAlg)
	status.Info("Key type:  %s", r.PubKeyAlg)
	if r.IsCA {
		status.Info("CA:        true")
	}
}

var keyUsageTable = []struct {
	bit  x509.KeyUsage
	name string
}{
	{x509.KeyUsageDigitalSignature, "digital signature"},
	{x509.KeyUsageContentCommitment, "content commitment"},
	{x509.KeyUsageKeyEncipherment, "key encipherment"},
	{x509.KeyUsageDataEncipherment, "data encipherment"},
	{x509.KeyUsageKeyAgreement, "key agreement"},
	{x509.KeyUsageCertSign, "certificate signing"},
	{x509.KeyUsageCRLSign, "CRL signing"},
	{x509.KeyUsageEncipherOnly, "encipher only"},
	{x509.KeyUsageDecipherOnly, "decipher only"},
}

func keyUsageNames(usage x509.KeyUsage) []string {
	var names []string
	for _, entry := range keyUsageTable {
		if usage&entry.bit != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

var extKeyUsageTable = map[x509.ExtKeyUsage]string{
	x509.ExtKeyUsageAny:             "any",
	x509.ExtKeyUsageServerAuth:      "server auth",
	x509.ExtKeyUsageClientAuth:      "client auth",
	x509.ExtKeyUsageCodeSigning:     "code signing",
	x509.ExtKeyUsageEmailProtection: "email protection",
	x509.ExtKeyUsageTimeStamping:    "time stamping",
	x509.ExtKeyUsageOCSPSigning:     "OCSP signing",
}

func extKeyUsageNames(usages []x509.ExtKeyUsage) []string {
	var names []string
	for _, u := range usages {
		if name, ok := extKeyUsageTable[u]; ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("unknown (%d)", u))
		}
	}
	return names
}
