// Package dpi converts the protocol inspection policy of a server.
package dpi

import (
	"slices"
	"strconv"
	"time"

	"github.com/H1Skaak/g3/internal/acl"
	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

const (
	DefaultMaxDepth         = 4
	DefaultData0WaitTimeout = 60 * time.Second
	DefaultData0BufferSize  = 4096
	maxDepthLimit           = 16
)

// Protocols that can be recognized on an intercepted stream.
var Protocols = []string{
	"bittorrent", "dns", "ftp", "http1", "http2", "http3", "imap", "mqtt",
	"nats", "nntp", "pop3", "rtmp", "rtsp", "smtp", "ssh", "ssl", "stomp",
	"websocket",
}

// Policy selects which streams are inspected and how deep.
type Policy struct {
	// Inspect is matched against the target host: a permit action means
	// the stream is inspected.
	Inspect acl.RuleSet
	// Protocols enables or disables the inspection of single protocols.
	// Protocols not listed are enabled.
	Protocols map[string]bool
	// PortMap lists the protocols to try first for a server port.
	PortMap          map[uint16][]string
	MaxDepth         uint8
	Data0WaitTimeout time.Duration
	Data0BufferSize  int
}

// Default returns the policy used when none is configured.
func Default() Policy {
	return Policy{
		Protocols:        map[string]bool{},
		PortMap:          map[uint16][]string{},
		MaxDepth:         DefaultMaxDepth,
		Data0WaitTimeout: DefaultData0WaitTimeout,
		Data0BufferSize:  DefaultData0BufferSize,
	}
}

// ShouldInspect reports whether streams to target are inspected. Without
// a matching rule and default action, they are.
func (p Policy) ShouldInspect(target string) bool {
	return !p.Inspect.Decide(target, acl.Permit).Forbidden()
}

// ProtocolEnabled reports whether inspection of protocol name is enabled.
func (p Policy) ProtocolEnabled(name string) bool {
	enabled, ok := p.Protocols[name]
	return !ok || enabled
}

var _policyKeys = yamlconf.NewAliases(
	[]string{"policy", "inspect_policy"},
	[]string{"protocols", "protocol_inspection"},
	[]string{"port_map", "server_tcp_portmap"},
	[]string{"max_depth", "inspect_max_depth"},
)

// ParsePolicy converts the dpi mapping. It needs the dpi capability.
func ParsePolicy(c *yamlconf.Context, v yamlconf.Node) (Policy, error) {
	if err := c.Require(feature.DPI, v); err != nil {
		return Policy{}, err
	}

	p := Default()
	err := _policyKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "policy":
			p.Inspect, err = acl.ParseRuleSet(c, v)
		case "protocols":
			err = yamlconf.ForEachKV(c, v, func(name string, v yamlconf.Node) error {
				if err := checkProtocol(name, v); err != nil {
					return err
				}
				enabled, err := yamlconf.AsBool(v)
				p.Protocols[name] = enabled
				return err
			})
		case "port_map":
			err = yamlconf.ForEachKV(c, v, func(port string, v yamlconf.Node) error {
				n, err := strconv.ParseUint(port, 10, 16)
				if err != nil || n == 0 {
					return yamlconf.NewError(yamlconf.ErrOutOfRange, v, "invalid port %q", port)
				}
				protos, err := parseProtocolList(c, v)
				p.PortMap[uint16(n)] = protos
				return err
			})
		case "max_depth":
			p.MaxDepth, err = yamlconf.AsUint8(v)
			if err == nil && (p.MaxDepth == 0 || p.MaxDepth > maxDepthLimit) {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "max depth must be in 1..%d", maxDepthLimit)
			}
		case "data0_wait_timeout":
			p.Data0WaitTimeout, err = yamlconf.AsDuration(v)
		case "data0_buffer_size":
			p.Data0BufferSize, err = yamlconf.AsSizeInt(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return Policy{}, err
	}
	return p, nil
}

func parseProtocolList(c *yamlconf.Context, v yamlconf.Node) ([]string, error) {
	var out []string
	err := yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
		s, err := yamlconf.AsString(v)
		if err != nil {
			return err
		}
		name := yamlconf.NormalizeKey(s)
		if err := checkProtocol(name, v); err != nil {
			return err
		}
		out = append(out, name)
		return nil
	})
	return out, err
}

func checkProtocol(name string, v yamlconf.Node) error {
	if !slices.Contains(Protocols, name) {
		return yamlconf.NewError(yamlconf.ErrInvalidValue, v, "unknown protocol %q", name)
	}
	return nil
}
