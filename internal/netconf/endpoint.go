package netconf

import (
	"net"
	"strconv"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// ResolveMode selects when the domain of an endpoint is resolved.
type ResolveMode uint8

const (
	// ResolveRuntime resolves the domain on every new connection.
	ResolveRuntime ResolveMode = iota
	// ResolveEager resolves the domain once after the configuration loads.
	ResolveEager
)

func (m ResolveMode) String() string {
	if m == ResolveEager {
		return "eager"
	}
	return "runtime"
}

// Endpoint is a remote host and port.
type Endpoint struct {
	Host    Host
	Port    uint16
	Resolve ResolveMode
}

// String renders the endpoint as "host:port".
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host.String(), strconv.Itoa(int(e.Port)))
}

var _endpointKeys = yamlconf.NewAliases(
	[]string{"host", "domain", "address", "addr"},
)

// ParseEndpoint converts a "host:port" scalar or a {host, port, resolve}
// mapping. Selecting a resolve mode needs the resolve capability.
func ParseEndpoint(c *yamlconf.Context, v yamlconf.Node) (Endpoint, error) {
	switch v.Kind() {
	case yamlconf.KindScalar:
		host, port, err := splitHostPort(v, v.Text())
		if err != nil {
			return Endpoint{}, err
		}
		h, err := parseHost(v, host)
		if err != nil {
			return Endpoint{}, err
		}
		return Endpoint{Host: h, Port: port}, nil
	case yamlconf.KindMapping:
	default:
		return Endpoint{}, yamlconf.NewError(yamlconf.ErrTypeMismatch, v, "expected host:port or mapping, got %s", v.Kind())
	}

	var (
		ep               Endpoint
		hasHost, hasPort bool
	)
	err := _endpointKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "host":
			ep.Host, err = AsHost(v)
			hasHost = true
		case "port":
			ep.Port, err = AsPort(v)
			hasPort = true
		case "resolve":
			if err = c.Require(feature.Resolve, v); err != nil {
				return err
			}
			ep.Resolve, err = asResolveMode(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return Endpoint{}, err
	}
	if !hasHost {
		return Endpoint{}, yamlconf.MissingKey(v, "host")
	}
	if !hasPort {
		return Endpoint{}, yamlconf.MissingKey(v, "port")
	}
	if ep.Resolve == ResolveEager && ep.Host.IsIP() {
		ep.Resolve = ResolveRuntime
	}
	return ep, nil
}

func asResolveMode(v yamlconf.Node) (ResolveMode, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return 0, err
	}
	switch yamlconf.NormalizeKey(s) {
	case "eager":
		return ResolveEager, nil
	case "runtime", "lazy":
		return ResolveRuntime, nil
	default:
		return 0, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "unknown resolve mode %q", s)
	}
}
