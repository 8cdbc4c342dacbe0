package netconf

import (
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/H1Skaak/g3/internal/yamlconf"
)

// Host is an IP literal or a validated ASCII domain name. Exactly one of
// Addr and Domain is set.
type Host struct {
	Addr   netip.Addr
	Domain string
}

// IsIP reports whether the host is an IP literal.
func (h Host) IsIP() bool { return h.Addr.IsValid() }

func (h Host) String() string {
	if h.IsIP() {
		return h.Addr.String()
	}
	return h.Domain
}

// AsAddr parses an IP literal. IPv4-mapped IPv6 addresses are unmapped.
func AsAddr(v yamlconf.Node) (netip.Addr, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return netip.Addr{}, err
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, yamlconf.WrapError(yamlconf.ErrInvalidAddress, v, err)
	}
	return addr.Unmap(), nil
}

// AsPrefix parses a CIDR network. A bare address is a single host network.
// Host bits are cleared, so "10.1.2.3/8" is 10.0.0.0/8.
func AsPrefix(v yamlconf.Node) (netip.Prefix, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return netip.Prefix{}, err
	}
	return ParsePrefix(v, s)
}

// ParsePrefix is AsPrefix over text taken from v.
func ParsePrefix(v yamlconf.Node, s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, yamlconf.WrapError(yamlconf.ErrInvalidAddress, v, err)
		}
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, yamlconf.WrapError(yamlconf.ErrInvalidAddress, v, err)
	}
	return p.Masked(), nil
}

// AsPort parses a port in 1..65535.
func AsPort(v yamlconf.Node) (uint16, error) {
	port, err := yamlconf.AsUint16(v)
	if err != nil {
		return 0, err
	}
	if port == 0 {
		return 0, yamlconf.NewError(yamlconf.ErrOutOfRange, v, "port 0 is not allowed")
	}
	return port, nil
}

// AsAddrPort parses "ip:port", with IPv6 addresses in brackets.
func AsAddrPort(v yamlconf.Node) (netip.AddrPort, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return netip.AddrPort{}, err
	}
	ap, err := netip.ParseAddrPort(strings.TrimSpace(s))
	if err != nil {
		return netip.AddrPort{}, yamlconf.WrapError(yamlconf.ErrInvalidAddress, v, err)
	}
	if ap.Port() == 0 {
		return netip.AddrPort{}, yamlconf.NewError(yamlconf.ErrOutOfRange, v, "port 0 is not allowed")
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}

// AsHost parses an IP literal or a domain name.
func AsHost(v yamlconf.Node) (Host, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return Host{}, err
	}
	return parseHost(v, s)
}

func parseHost(v yamlconf.Node, s string) (Host, error) {
	s = strings.TrimSpace(s)
	if addr, err := netip.ParseAddr(strings.Trim(s, "[]")); err == nil {
		return Host{Addr: addr.Unmap()}, nil
	}
	domain, err := yamlconf.ParseDomain(v, s)
	if err != nil {
		return Host{}, err
	}
	return Host{Domain: domain}, nil
}

// splitHostPort splits "host:port" reporting failures at v.
func splitHostPort(v yamlconf.Node, s string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return "", 0, yamlconf.WrapError(yamlconf.ErrInvalidAddress, v, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, yamlconf.NewError(yamlconf.ErrOutOfRange, v, "invalid port %q", portStr)
	}
	if port == 0 {
		return "", 0, yamlconf.NewError(yamlconf.ErrOutOfRange, v, "port 0 is not allowed")
	}
	return host, uint16(port), nil
}
