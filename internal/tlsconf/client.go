package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/H1Skaak/g3/internal/yamlconf"
)

// ClientConfig is the TLS material used when connecting upstream.
type ClientConfig struct {
	Backend Backend
	// ServerName overrides the name sent in SNI and verified against the
	// peer certificate.
	ServerName string
	CA         *Certificates
	// NoDefaultCA drops the system roots, trusting only CA.
	NoDefaultCA      bool
	Certificate      *tls.Certificate
	Protocols        []uint16
	ALPNProtocols    []string
	HandshakeTimeout time.Duration
	NoSessionCache   bool
}

var _clientKeys = yamlconf.NewAliases(
	[]string{"server_name", "tls_name"},
	[]string{"ca_certificate", "ca_cert", "ca"},
	[]string{"no_default_ca", "no_default_ca_certificate"},
	[]string{"cert", "certificate", "certificates"},
	[]string{"key", "private_key"},
	[]string{"protocols", "protocol"},
	[]string{"alpn_protocols", "alpn_protocol"},
	[]string{"handshake_timeout", "negotiation_timeout"},
)

// ParseClient converts a tls_client mapping. A client certificate is
// optional, but cert and key must be given together.
func ParseClient(c *yamlconf.Context, v yamlconf.Node) (ClientConfig, error) {
	if v.Kind() != yamlconf.KindMapping {
		return ClientConfig{}, yamlconf.NewError(yamlconf.ErrTypeMismatch, v, "expected mapping, got %s", v.Kind())
	}
	backend, err := selectBackend(c, v)
	if err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		Backend:          backend,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
	var (
		chain   Certificates
		key     PrivateKey
		keyKey  string
		keyNode yamlconf.Node
		hasCert bool
		hasKey  bool
	)
	err = _clientKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "backend":
		case "server_name":
			var h string
			h, err = yamlconf.AsString(v)
			if err == nil {
				cfg.ServerName, err = yamlconf.ParseDomain(v, h)
			}
		case "ca_certificate":
			var ca Certificates
			ca, err = ParseCertificates(c, v)
			cfg.CA = &ca
		case "no_default_ca":
			cfg.NoDefaultCA, err = yamlconf.AsBool(v)
		case "cert":
			chain, err = ParseCertificates(c, v)
			hasCert = true
		case "key":
			key, err = ParsePrivateKey(c, v)
			keyKey, keyNode, hasKey = c.LastKey(), v, true
		case "protocols":
			cfg.Protocols, err = parseProtocols(c, v)
		case "alpn_protocols":
			cfg.ALPNProtocols, err = parseALPN(c, v)
		case "handshake_timeout":
			cfg.HandshakeTimeout, err = yamlconf.AsDuration(v)
		case "no_session_cache":
			cfg.NoSessionCache, err = yamlconf.AsBool(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return ClientConfig{}, err
	}

	switch {
	case hasCert && !hasKey:
		return ClientConfig{}, yamlconf.MissingKey(v, "key")
	case hasKey && !hasCert:
		return ClientConfig{}, yamlconf.MissingKey(v, "cert")
	case hasCert:
		err = c.Key(keyKey, func() error {
			pair, err := keyPair(chain, key, keyNode)
			cfg.Certificate = &pair
			return err
		})
		if err != nil {
			return ClientConfig{}, err
		}
	}
	if cfg.NoDefaultCA && cfg.CA == nil {
		return ClientConfig{}, yamlconf.NewError(yamlconf.ErrMissingKey, v, "no_default_ca is set without ca_certificate")
	}
	return cfg, nil
}

// Build returns a crypto/tls client configuration.
func (cc ClientConfig) Build() *tls.Config {
	minVer, maxVer := versionRange(cc.Protocols)
	cfg := &tls.Config{
		ServerName: cc.ServerName,
		MinVersion: minVer,
		MaxVersion: maxVer,
		NextProtos: cc.ALPNProtocols,
	}
	if cc.CA != nil || cc.NoDefaultCA {
		cfg.RootCAs = cc.roots()
	}
	if cc.Certificate != nil {
		cfg.Certificates = []tls.Certificate{*cc.Certificate}
	}
	if !cc.NoSessionCache {
		cfg.ClientSessionCache = tls.NewLRUClientSessionCache(0)
	}
	return cfg
}

func (cc ClientConfig) roots() *x509.CertPool {
	pool := x509.NewCertPool()
	if !cc.NoDefaultCA {
		if sys, err := x509.SystemCertPool(); err == nil {
			pool = sys
		}
	}
	if cc.CA != nil {
		for _, c := range cc.CA.Certs {
			pool.AddCert(c)
		}
	}
	return pool
}
