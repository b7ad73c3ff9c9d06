package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
)

// ErrIncompleteKeyPair is returned when only one of cert and key is given.
var ErrIncompleteKeyPair = errors.New("certificate and key files must be given together")

// ServerConfig builds the HTTPS configuration. With certFile and keyFile it
// loads that key pair; with neither it generates a self-signed certificate
// from gen (nil selects DefaultCertificateConfig). The generated certificate,
// if any, is returned so callers can report or export it.
func ServerConfig(certFile, keyFile string, gen *CertificateConfig) (*tls.Config, *GeneratedCertificate, error) {
	if (certFile == "") != (keyFile == "") {
		return nil, nil, ErrIncompleteKeyPair
	}

	if certFile != "" {
		pair, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading TLS key pair: %w", err)
		}
		return newConfig(pair), nil, nil
	}

	generated, err := GenerateSelfSignedCert(gen)
	if err != nil {
		return nil, nil, err
	}
	pair, err := tls.X509KeyPair(generated.CertPEM, generated.KeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("building TLS key pair: %w", err)
	}
	return newConfig(pair), generated, nil
}

func newConfig(pair tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}
}
