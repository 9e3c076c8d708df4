package tls

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// Identity is the TLS identity of a single virtual host: a certificate
// chain, the matching private key, and an optional CA set used to verify
// client certificates. An Identity is immutable after construction and is
// shared by reference across all handshakes for its host.
type Identity struct {
	cert      tls.Certificate
	leaf      *x509.Certificate
	clientCAs *x509.CertPool
	mutual    bool
}

// NewIdentity builds an identity from DER-encoded material: the
// certificate chain (leaf first), the private key, and an optional set of
// client CA certificates enabling mutual TLS.
func NewIdentity(chain [][]byte, keyDER []byte, clientCAs [][]byte) (*Identity, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("certificate chain must not be empty")
	}
	if len(keyDER) == 0 {
		return nil, fmt.Errorf("private key must not be empty")
	}

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse leaf certificate: %w", err)
	}

	key, err := parsePrivateKeyDER(keyDER)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		cert: tls.Certificate{
			Certificate: chain,
			PrivateKey:  key,
			Leaf:        leaf,
		},
		leaf: leaf,
	}

	if len(clientCAs) > 0 {
		pool := x509.NewCertPool()
		for _, der := range clientCAs {
			ca, err := x509.ParseCertificate(der)
			if err != nil {
				return nil, fmt.Errorf("failed to parse client CA certificate: %w", err)
			}
			pool.AddCert(ca)
		}
		id.clientCAs = pool
		id.mutual = true
	}

	if err := ValidateCertificate(&id.cert); err != nil {
		return nil, fmt.Errorf("certificate validation failed: %w", err)
	}

	return id, nil
}

// NewIdentityFromPEM builds an identity from PEM-encoded material. caPEM
// may be nil when client certificate verification is not wanted.
func NewIdentityFromPEM(certPEM, keyPEM, caPEM []byte) (*Identity, error) {
	chain, err := decodeCertificatePEM(certPEM)
	if err != nil {
		return nil, err
	}

	keyDER, err := decodePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}

	var cas [][]byte
	if len(caPEM) > 0 {
		cas, err = decodeCertificatePEM(caPEM)
		if err != nil {
			return nil, fmt.Errorf("client CA: %w", err)
		}
	}

	return NewIdentity(chain, keyDER, cas)
}

// LoadIdentity builds an identity from PEM files on disk. caFile may be
// empty.
func LoadIdentity(certFile, keyFile, caFile string) (*Identity, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file %q: %w", certFile, err)
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", keyFile, err)
	}

	var caPEM []byte
	if caFile != "" {
		caPEM, err = os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA file %q: %w", caFile, err)
		}
	}

	return NewIdentityFromPEM(certPEM, keyPEM, caPEM)
}

// Certificate returns the identity's certificate with private key, ready
// for use by the TLS engine.
func (id *Identity) Certificate() *tls.Certificate {
	return &id.cert
}

// Leaf returns the parsed leaf certificate.
func (id *Identity) Leaf() *x509.Certificate {
	return id.leaf
}

// ClientCAs returns the CA pool used to verify client certificates, or nil
// when mutual TLS is not configured.
func (id *Identity) ClientCAs() *x509.CertPool {
	return id.clientCAs
}

// MutualTLS reports whether this identity requires client certificates.
func (id *Identity) MutualTLS() bool {
	return id.mutual
}

// decodeCertificatePEM extracts all CERTIFICATE blocks from PEM data.
func decodeCertificatePEM(data []byte) ([][]byte, error) {
	var chain [][]byte
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates found in PEM data")
	}
	return chain, nil
}

// decodePrivateKeyPEM extracts the first private key block from PEM data.
func decodePrivateKeyPEM(data []byte) ([]byte, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("no private key found in PEM data")
		}
		switch block.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			return block.Bytes, nil
		}
	}
}

// parsePrivateKeyDER parses a DER-encoded private key, accepting PKCS#8,
// PKCS#1, and SEC 1 encodings.
func parsePrivateKeyDER(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("failed to parse private key: unsupported encoding")
}
