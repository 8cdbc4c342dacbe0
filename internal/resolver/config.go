package resolver

import (
	"net/netip"
	"time"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/netconf"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

const (
	// DefaultTimeout bounds one lookup, all retries included.
	DefaultTimeout = 5 * time.Second
	// DefaultRetries is the number of extra attempts per query.
	DefaultRetries = 2
	// MaxRetries bounds the retries key.
	MaxRetries = 10
	dnsPort    = 53
)

// Config is a named set of upstream DNS servers.
type Config struct {
	Name    string
	Servers []netip.AddrPort
	Timeout time.Duration
	Retries uint
}

var _configKeys = yamlconf.NewAliases(
	[]string{"servers", "server"},
	[]string{"timeout", "query_timeout"},
	[]string{"retries", "retry"},
)

// ParseConfig converts a resolver mapping. It needs the resolve capability.
func ParseConfig(c *yamlconf.Context, v yamlconf.Node) (Config, error) {
	if err := c.Require(feature.Resolve, v); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Timeout: DefaultTimeout,
		Retries: DefaultRetries,
	}
	err := _configKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "name":
			cfg.Name, err = yamlconf.AsNodeName(v)
		case "servers":
			err = yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
				ap, err := asServer(v)
				if err != nil {
					return err
				}
				cfg.Servers = append(cfg.Servers, ap)
				return nil
			})
		case "timeout":
			cfg.Timeout, err = yamlconf.AsDuration(v)
			if err == nil && cfg.Timeout == 0 {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "timeout must be positive")
			}
		case "retries":
			var n uint8
			n, err = yamlconf.AsUint8(v)
			if err == nil && n > MaxRetries {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "retries must be at most %d", MaxRetries)
			}
			cfg.Retries = uint(n)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return Config{}, err
	}
	if cfg.Name == "" {
		return Config{}, yamlconf.MissingKey(v, "name")
	}
	if len(cfg.Servers) == 0 {
		return Config{}, yamlconf.MissingKey(v, "servers")
	}
	return cfg, nil
}

// asServer accepts an address with or without a port.
func asServer(v yamlconf.Node) (netip.AddrPort, error) {
	if addr, err := netip.ParseAddr(v.Text()); err == nil && v.Kind() == yamlconf.KindScalar {
		return netip.AddrPortFrom(addr.Unmap(), dnsPort), nil
	}
	return netconf.AsAddrPort(v)
}
