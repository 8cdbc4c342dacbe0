package tlsconf

import (
	"crypto/tls"
	"slices"
	"time"

	"github.com/H1Skaak/g3/internal/yamlconf"
)

// DefaultHandshakeTimeout bounds a TLS handshake when none is configured.
const DefaultHandshakeTimeout = 10 * time.Second

// parseProtocols converts one protocol name or a list of them into sorted
// TLS version numbers.
func parseProtocols(c *yamlconf.Context, v yamlconf.Node) ([]uint16, error) {
	var out []uint16
	err := yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
		s, err := yamlconf.AsString(v)
		if err != nil {
			return err
		}
		var ver uint16
		switch yamlconf.NormalizeKey(s) {
		case "tls1.2", "tlsv1.2", "tls12", "1.2":
			ver = tls.VersionTLS12
		case "tls1.3", "tlsv1.3", "tls13", "1.3":
			ver = tls.VersionTLS13
		default:
			return yamlconf.NewError(yamlconf.ErrInvalidValue, v, "unsupported tls protocol %q", s)
		}
		if !slices.Contains(out, ver) {
			out = append(out, ver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

// parseALPN converts one ALPN protocol id or a list of them.
func parseALPN(c *yamlconf.Context, v yamlconf.Node) ([]string, error) {
	var out []string
	err := yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
		s, err := yamlconf.AsASCII(v)
		if err != nil {
			return err
		}
		if len(s) > 255 {
			return yamlconf.NewError(yamlconf.ErrOutOfRange, v, "alpn protocol id is longer than 255 bytes")
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// versionRange returns min and max versions for tls.Config, or zeros to
// keep the library defaults.
func versionRange(protocols []uint16) (uint16, uint16) {
	if len(protocols) == 0 {
		return tls.VersionTLS12, 0
	}
	return protocols[0], protocols[len(protocols)-1]
}
