package netconf

import (
	"time"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// QuicTransport holds the QUIC transport parameters of a server or escaper.
type QuicTransport struct {
	MaxIdleTimeout      time.Duration
	KeepAliveInterval   time.Duration
	MaxBidiStreams      uint32
	StreamReceiveWindow uint32
	ReceiveWindow       uint32
}

// DefaultQuicTransport returns the transport used when none is configured.
func DefaultQuicTransport() QuicTransport {
	return QuicTransport{
		MaxIdleTimeout:      60 * time.Second,
		MaxBidiStreams:      100,
		StreamReceiveWindow: 1 << 20,
		ReceiveWindow:       8 << 20,
	}
}

var _quicTransportKeys = yamlconf.NewAliases(
	[]string{"keep_alive_interval", "keepalive_interval"},
	[]string{"max_bidi_streams", "max_concurrent_bidi_streams"},
)

// ParseQuicTransport converts the quic mapping. It needs the quinn
// capability.
func ParseQuicTransport(c *yamlconf.Context, v yamlconf.Node) (QuicTransport, error) {
	if err := c.Require(feature.Quinn, v); err != nil {
		return QuicTransport{}, err
	}

	q := DefaultQuicTransport()
	err := _quicTransportKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "max_idle_timeout":
			q.MaxIdleTimeout, err = yamlconf.AsDuration(v)
		case "keep_alive_interval":
			q.KeepAliveInterval, err = yamlconf.AsDuration(v)
		case "max_bidi_streams":
			q.MaxBidiStreams, err = yamlconf.AsUint32(v)
		case "stream_receive_window":
			q.StreamReceiveWindow, err = yamlconf.AsSizeUint32(v)
		case "receive_window":
			q.ReceiveWindow, err = yamlconf.AsSizeUint32(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return QuicTransport{}, err
	}
	if q.KeepAliveInterval > 0 && q.MaxIdleTimeout > 0 && q.KeepAliveInterval >= q.MaxIdleTimeout {
		return QuicTransport{}, yamlconf.NewError(yamlconf.ErrInvalidValue, v,
			"keep_alive_interval %s must be below max_idle_timeout %s", q.KeepAliveInterval, q.MaxIdleTimeout)
	}
	return q, nil
}
