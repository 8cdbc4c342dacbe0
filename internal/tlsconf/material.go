package tlsconf

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"slices"
	"strings"

	"github.com/H1Skaak/g3/internal/filesys"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

var errNoPEM = errors.New("no pem block found")

// Certificates is a parsed PEM certificate list.
type Certificates struct {
	Certs []*x509.Certificate
	pem   []byte
}

// Pool returns a pool holding the certificates.
func (cs Certificates) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range cs.Certs {
		pool.AddCert(c)
	}
	return pool
}

// PrivateKey is a parsed PEM private key.
type PrivateKey struct {
	Key crypto.Signer
	pem []byte
}

// readPEM returns the PEM text of v: the scalar itself when it holds a PEM
// block, otherwise the content of the file it names.
func readPEM(c *yamlconf.Context, v yamlconf.Node, kind error) ([]byte, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return nil, err
	}
	if strings.Contains(s, "-----BEGIN ") {
		return []byte(s), nil
	}
	p := strings.TrimSpace(s)
	if p == "" {
		return nil, yamlconf.NewError(kind, v, "empty path")
	}
	data, err := c.FS().ReadFile(filesys.Resolve(c.LookupDir(), p))
	if err != nil {
		return nil, yamlconf.WrapError(kind, v, err)
	}
	return data, nil
}

// ParseCertificates converts inline PEM or a PEM file into one or more
// X.509 certificates.
func ParseCertificates(c *yamlconf.Context, v yamlconf.Node) (Certificates, error) {
	data, err := readPEM(c, v, yamlconf.ErrInvalidCertificate)
	if err != nil {
		return Certificates{}, err
	}

	var (
		out  = Certificates{pem: data}
		rest = data
	)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return Certificates{}, yamlconf.WrapError(yamlconf.ErrInvalidCertificate, v, err)
		}
		out.Certs = append(out.Certs, cert)
	}
	if len(out.Certs) == 0 {
		return Certificates{}, yamlconf.WrapError(yamlconf.ErrInvalidCertificate, v, errNoPEM)
	}
	return out, nil
}

// ParsePrivateKey converts inline PEM or a PEM file into a private key.
// PKCS#8, PKCS#1 and SEC 1 encodings are accepted.
func ParsePrivateKey(c *yamlconf.Context, v yamlconf.Node) (PrivateKey, error) {
	data, err := readPEM(c, v, yamlconf.ErrInvalidPrivateKey)
	if err != nil {
		return PrivateKey{}, err
	}

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return PrivateKey{}, yamlconf.WrapError(yamlconf.ErrInvalidPrivateKey, v, errNoPEM)
		}
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}
		key, err := parseKey(block)
		if err != nil {
			return PrivateKey{}, yamlconf.WrapError(yamlconf.ErrInvalidPrivateKey, v, err)
		}
		return PrivateKey{Key: key, pem: data}, nil
	}
}

func parseKey(block *pem.Block) (crypto.Signer, error) {
	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, err
	}
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, errors.New("unsupported private key type")
	}
}

// keyPair checks that key belongs to the leaf of certs.
func keyPair(certs Certificates, key PrivateKey, keyNode yamlconf.Node) (tls.Certificate, error) {
	pair, err := tls.X509KeyPair(certs.pem, key.pem)
	if err != nil {
		return tls.Certificate{}, yamlconf.WrapError(yamlconf.ErrInvalidPrivateKey, keyNode, err)
	}
	return pair, nil
}

// raw returns the DER of every certificate in cs.
func (cs *Certificates) raw() [][]byte {
	if cs == nil {
		return nil
	}
	out := make([][]byte, 0, len(cs.Certs))
	for _, c := range cs.Certs {
		out = append(out, c.Raw)
	}
	return out
}

// Material returns the DER of the loaded certificate chain and client CA.
// It changes whenever a certificate file is replaced, even if the config
// text stays the same.
func (cfg *ServerConfig) Material() [][]byte {
	return append(slices.Clone(cfg.Certificate.Certificate), cfg.ClientCA.raw()...)
}

// Material returns the DER of the loaded CA and client certificate.
func (cfg *ClientConfig) Material() [][]byte {
	out := cfg.CA.raw()
	if cfg.Certificate != nil {
		out = append(out, cfg.Certificate.Certificate...)
	}
	return out
}
