package config

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/cockroachdb/errors"
)

// TLSConfig names PEM files for one end of an RPC connection. On the node,
// Cert and Key are required and CA, if set, makes client certificates
// mandatory. On the client, CA is the trusted root and Cert/Key are
// presented when the node asks for them.
type TLSConfig struct {
	CA   string `json:"ca,omitempty"`
	Cert string `json:"cert,omitempty"`
	Key  string `json:"key,omitempty"`
}

func (c *TLSConfig) empty() bool {
	return c == nil || (c.CA == "" && c.Cert == "" && c.Key == "")
}

// ServerTLS builds the node's *tls.Config. A nil or empty cfg returns
// (nil, nil), meaning plain HTTP.
func ServerTLS(cfg *TLSConfig) (*tls.Config, error) {
	if cfg.empty() {
		return nil, nil
	}
	if cfg.Cert == "" || cfg.Key == "" {
		return nil, errors.New("tls: cert and key are required to serve")
	}
	cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
	if err != nil {
		return nil, errors.Wrap(err, "load server cert/key")
	}
	out := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}
	if cfg.CA != "" {
		pool, err := loadPool(cfg.CA)
		if err != nil {
			return nil, err
		}
		out.ClientCAs = pool
		out.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return out, nil
}

// ClientTLS builds the client's *tls.Config. A nil or empty cfg returns
// (nil, nil), meaning the system roots.
func ClientTLS(cfg *TLSConfig) (*tls.Config, error) {
	if cfg.empty() {
		return nil, nil
	}
	out := &tls.Config{MinVersion: tls.VersionTLS13}
	if cfg.CA != "" {
		pool, err := loadPool(cfg.CA)
		if err != nil {
			return nil, err
		}
		out.RootCAs = pool
	}
	if cfg.Cert != "" || cfg.Key != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
		if err != nil {
			return nil, errors.Wrap(err, "load client cert/key")
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}

func loadPool(path string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read CA cert")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errors.Newf("no certificates in %s", path)
	}
	return pool, nil
}
