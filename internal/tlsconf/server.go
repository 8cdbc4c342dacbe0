package tlsconf

import (
	"crypto/tls"
	"time"

	"github.com/H1Skaak/g3/internal/yamlconf"
)

// ServerConfig is the TLS material of a listening server.
type ServerConfig struct {
	Backend          Backend
	Certificate      tls.Certificate
	Chain            Certificates
	ClientCA         *Certificates
	EnableClientAuth bool
	Protocols        []uint16
	ALPNProtocols    []string
	HandshakeTimeout time.Duration
	NoSessionTicket  bool
}

var _serverKeys = yamlconf.NewAliases(
	[]string{"cert", "certificate", "certificates"},
	[]string{"key", "private_key"},
	[]string{"ca_certificate", "ca_cert", "client_auth_certificate"},
	[]string{"protocols", "protocol"},
	[]string{"alpn_protocols", "alpn_protocol"},
	[]string{"handshake_timeout", "accept_timeout", "negotiation_timeout"},
)

// ParseServer converts a tls_server mapping. The cert and key keys are
// required and must form a pair.
func ParseServer(c *yamlconf.Context, v yamlconf.Node) (ServerConfig, error) {
	if v.Kind() != yamlconf.KindMapping {
		return ServerConfig{}, yamlconf.NewError(yamlconf.ErrTypeMismatch, v, "expected mapping, got %s", v.Kind())
	}
	backend, err := selectBackend(c, v)
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		Backend:          backend,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
	var (
		key     PrivateKey
		keyKey  string
		keyNode yamlconf.Node
		hasCert bool
		hasKey  bool
	)
	err = _serverKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "backend":
		case "cert":
			cfg.Chain, err = ParseCertificates(c, v)
			hasCert = true
		case "key":
			key, err = ParsePrivateKey(c, v)
			keyKey, keyNode, hasKey = c.LastKey(), v, true
		case "ca_certificate":
			var ca Certificates
			ca, err = ParseCertificates(c, v)
			cfg.ClientCA = &ca
		case "enable_client_auth":
			cfg.EnableClientAuth, err = yamlconf.AsBool(v)
		case "protocols":
			cfg.Protocols, err = parseProtocols(c, v)
		case "alpn_protocols":
			cfg.ALPNProtocols, err = parseALPN(c, v)
		case "handshake_timeout":
			cfg.HandshakeTimeout, err = yamlconf.AsDuration(v)
		case "no_session_ticket":
			cfg.NoSessionTicket, err = yamlconf.AsBool(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return ServerConfig{}, err
	}

	if !hasCert {
		return ServerConfig{}, yamlconf.MissingKey(v, "cert")
	}
	if !hasKey {
		return ServerConfig{}, yamlconf.MissingKey(v, "key")
	}
	err = c.Key(keyKey, func() error {
		var err error
		cfg.Certificate, err = keyPair(cfg.Chain, key, keyNode)
		return err
	})
	if err != nil {
		return ServerConfig{}, err
	}
	if cfg.EnableClientAuth && cfg.ClientCA == nil {
		return ServerConfig{}, yamlconf.MissingKey(v, "ca_certificate")
	}
	return cfg, nil
}

// Build returns a crypto/tls server configuration.
func (s ServerConfig) Build() *tls.Config {
	minVer, maxVer := versionRange(s.Protocols)
	cfg := &tls.Config{
		Certificates:           []tls.Certificate{s.Certificate},
		MinVersion:             minVer,
		MaxVersion:             maxVer,
		NextProtos:             s.ALPNProtocols,
		SessionTicketsDisabled: s.NoSessionTicket,
	}
	if s.ClientCA != nil {
		cfg.ClientCAs = s.ClientCA.Pool()
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	if s.EnableClientAuth {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg
}
