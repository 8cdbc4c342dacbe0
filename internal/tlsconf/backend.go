package tlsconf

import (
	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// Backend is the TLS library a configuration is meant for.
type Backend uint8

const (
	BackendRustls Backend = iota + 1
	BackendOpenSSL
)

func (b Backend) String() string {
	switch b {
	case BackendRustls:
		return "rustls"
	case BackendOpenSSL:
		return "openssl"
	default:
		return "none"
	}
}

func (b Backend) feature() feature.Feature {
	if b == BackendOpenSSL {
		return feature.OpenSSL
	}
	return feature.Rustls
}

// DefaultBackend returns the preferred linked backend, if any.
func DefaultBackend(fs feature.Set) (Backend, bool) {
	switch {
	case fs.Has(feature.Rustls):
		return BackendRustls, true
	case fs.Has(feature.OpenSSL):
		return BackendOpenSSL, true
	default:
		return 0, false
	}
}

// selectBackend reads the backend key of mapping v ahead of the other keys
// so that an unlinked backend is reported before any material is read.
func selectBackend(c *yamlconf.Context, v yamlconf.Node) (Backend, error) {
	bv, ok, err := v.Get("backend")
	if err != nil {
		return 0, err
	}
	if !ok {
		b, linked := DefaultBackend(c.Features())
		if !linked {
			return 0, yamlconf.NewError(yamlconf.ErrUnsupportedFeature, v, "no tls backend is linked into this binary")
		}
		return b, nil
	}

	var b Backend
	err = c.Key("backend", func() error {
		s, err := yamlconf.AsString(bv)
		if err != nil {
			return err
		}
		switch yamlconf.NormalizeKey(s) {
		case "rustls":
			b = BackendRustls
		case "openssl", "boringssl":
			b = BackendOpenSSL
		default:
			return yamlconf.NewError(yamlconf.ErrInvalidValue, bv, "unknown tls backend %q", s)
		}
		return c.Require(b.feature(), bv)
	})
	return b, err
}
