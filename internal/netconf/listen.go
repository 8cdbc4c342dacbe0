package netconf

import (
	"net/netip"
	"strings"

	"github.com/H1Skaak/g3/internal/yamlconf"
)

const (
	// DefaultBacklog is the listen queue length when none is set.
	DefaultBacklog = 4096
	// MaxInstances bounds the number of listen sockets per server.
	MaxInstances = 128
)

// ListenConfig describes a TCP listen socket.
type ListenConfig struct {
	Address  netip.AddrPort
	Backlog  uint32
	IPv6Only bool
	// Instance is the number of sockets bound to Address with SO_REUSEPORT.
	Instance int
}

func defaultListen() ListenConfig {
	return ListenConfig{
		Backlog:  DefaultBacklog,
		Instance: 1,
	}
}

var _listenKeys = yamlconf.NewAliases(
	[]string{"address", "addr"},
	[]string{"ipv6_only", "ipv6only"},
	[]string{"instance", "instance_count"},
)

// ParseListen converts a port number, an "address:port" scalar or a mapping
// with the socket options. A bare port listens on every address.
func ParseListen(c *yamlconf.Context, v yamlconf.Node) (ListenConfig, error) {
	l := defaultListen()

	switch v.Kind() {
	case yamlconf.KindScalar:
		addr, err := parseListenAddr(v)
		if err != nil {
			return ListenConfig{}, err
		}
		l.Address = addr
		return l, nil
	case yamlconf.KindMapping:
	default:
		return ListenConfig{}, yamlconf.NewError(yamlconf.ErrTypeMismatch, v, "expected port, address or mapping, got %s", v.Kind())
	}

	err := _listenKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "address":
			l.Address, err = parseListenAddr(v)
		case "backlog":
			l.Backlog, err = yamlconf.AsUint32(v)
		case "ipv6_only":
			l.IPv6Only, err = yamlconf.AsBool(v)
		case "instance":
			l.Instance, err = yamlconf.AsUsize(v)
			if err == nil && (l.Instance == 0 || l.Instance > MaxInstances) {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "instance count must be in 1..%d", MaxInstances)
			}
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return ListenConfig{}, err
	}
	if !l.Address.IsValid() {
		return ListenConfig{}, yamlconf.MissingKey(v, "address")
	}
	if l.IPv6Only && !l.Address.Addr().Is6() {
		return ListenConfig{}, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "ipv6_only is set for ipv4 address %s", l.Address)
	}
	return l, nil
}

func parseListenAddr(v yamlconf.Node) (netip.AddrPort, error) {
	s := strings.TrimSpace(v.Text())
	if v.Kind() == yamlconf.KindScalar && !strings.Contains(s, ":") {
		port, err := AsPort(v)
		if err != nil {
			return netip.AddrPort{}, err
		}
		return netip.AddrPortFrom(netip.IPv6Unspecified(), port), nil
	}
	return AsAddrPort(v)
}
