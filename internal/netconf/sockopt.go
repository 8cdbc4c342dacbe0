package netconf

import (
	"time"

	"github.com/H1Skaak/g3/internal/yamlconf"
)

// TCPMiscOpts are optional socket options applied to accepted or connected
// TCP sockets. A nil field leaves the system default.
type TCPMiscOpts struct {
	NoDelay        *bool
	MaxSegmentSize *uint32
	TimeToLive     *uint32
	TypeOfService  *uint8
	NetfilterMark  *uint32
	KeepaliveIdle  *time.Duration
}

var _tcpMiscOptsKeys = yamlconf.NewAliases(
	[]string{"no_delay", "nodelay"},
	[]string{"max_segment_size", "mss"},
	[]string{"time_to_live", "ttl"},
	[]string{"type_of_service", "tos"},
	[]string{"netfilter_mark", "mark"},
	[]string{"keepalive_idle", "keepalive"},
)

// ParseTCPMiscOpts converts the tcp_misc_opts mapping.
func ParseTCPMiscOpts(c *yamlconf.Context, v yamlconf.Node) (TCPMiscOpts, error) {
	var o TCPMiscOpts
	err := _tcpMiscOptsKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		switch k {
		case "no_delay":
			return set(&o.NoDelay, v, yamlconf.AsBool)
		case "max_segment_size":
			return set(&o.MaxSegmentSize, v, yamlconf.AsUint32)
		case "time_to_live":
			return set(&o.TimeToLive, v, yamlconf.AsUint32)
		case "type_of_service":
			return set(&o.TypeOfService, v, yamlconf.AsUint8)
		case "netfilter_mark":
			return set(&o.NetfilterMark, v, yamlconf.AsUint32)
		case "keepalive_idle":
			return set(&o.KeepaliveIdle, v, yamlconf.AsDuration)
		default:
			return yamlconf.UnknownKey(k, v)
		}
	})
	if err != nil {
		return TCPMiscOpts{}, err
	}
	return o, nil
}

func set[T any](dst **T, v yamlconf.Node, conv func(yamlconf.Node) (T, error)) error {
	val, err := conv(v)
	if err != nil {
		return err
	}
	*dst = &val
	return nil
}
