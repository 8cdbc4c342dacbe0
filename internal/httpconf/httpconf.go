// Package httpconf converts the HTTP protocol settings of proxy servers.
package httpconf

import (
	"time"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// ForwardedHeader selects how the client address is passed upstream.
type ForwardedHeader uint8

const (
	// ForwardedNone adds no header.
	ForwardedNone ForwardedHeader = iota
	// ForwardedClassic adds X-Forwarded-For.
	ForwardedClassic
	// ForwardedStandard adds the RFC 7239 Forwarded header.
	ForwardedStandard
)

func (f ForwardedHeader) String() string {
	switch f {
	case ForwardedClassic:
		return "classic"
	case ForwardedStandard:
		return "standard"
	default:
		return "none"
	}
}

// Defaults for the HTTP settings.
const (
	DefaultHeaderMaxSize     = 64 << 10
	DefaultPipelineSize      = 10
	DefaultKeepaliveTimeout  = 60 * time.Second
	DefaultBodyLineMaxLength = 8192
)

// ServerConfig holds the HTTP protocol limits of a server.
type ServerConfig struct {
	ReqHeaderMaxSize  int
	RspHeaderMaxSize  int
	PipelineSize      int
	KeepaliveTimeout  time.Duration
	ForwardedHeader   ForwardedHeader
	ServerID          string
	BodyLineMaxLength int
}

// Default returns the settings used when none are configured.
func Default() ServerConfig {
	return ServerConfig{
		ReqHeaderMaxSize:  DefaultHeaderMaxSize,
		RspHeaderMaxSize:  DefaultHeaderMaxSize,
		PipelineSize:      DefaultPipelineSize,
		KeepaliveTimeout:  DefaultKeepaliveTimeout,
		BodyLineMaxLength: DefaultBodyLineMaxLength,
	}
}

var _serverKeys = yamlconf.NewAliases(
	[]string{"req_header_max_size", "req_hdr_max_size"},
	[]string{"rsp_header_max_size", "rsp_hdr_max_size"},
	[]string{"keepalive_timeout", "http_keepalive_timeout"},
	[]string{"forwarded_header", "append_forwarded_for"},
	[]string{"body_line_max_length", "body_line_max_len"},
)

// ParseServer converts the http mapping of a server. It needs the http
// capability.
func ParseServer(c *yamlconf.Context, v yamlconf.Node) (ServerConfig, error) {
	if err := c.Require(feature.HTTP, v); err != nil {
		return ServerConfig{}, err
	}

	cfg := Default()
	err := _serverKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "req_header_max_size":
			cfg.ReqHeaderMaxSize, err = positiveSize(v)
		case "rsp_header_max_size":
			cfg.RspHeaderMaxSize, err = positiveSize(v)
		case "pipeline_size":
			cfg.PipelineSize, err = yamlconf.AsUsize(v)
			if err == nil && cfg.PipelineSize == 0 {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "pipeline size must be at least 1")
			}
		case "keepalive_timeout":
			cfg.KeepaliveTimeout, err = yamlconf.AsDuration(v)
		case "forwarded_header":
			cfg.ForwardedHeader, err = asForwardedHeader(v)
		case "server_id":
			cfg.ServerID, err = yamlconf.AsASCII(v)
		case "body_line_max_length":
			cfg.BodyLineMaxLength, err = positiveSize(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func positiveSize(v yamlconf.Node) (int, error) {
	n, err := yamlconf.AsSizeInt(v)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, yamlconf.NewError(yamlconf.ErrOutOfRange, v, "size must be positive")
	}
	return n, nil
}

// asForwardedHeader accepts the style names as well as a boolean, where
// true means the classic header.
func asForwardedHeader(v yamlconf.Node) (ForwardedHeader, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return 0, err
	}
	switch yamlconf.NormalizeKey(s) {
	case "none", "false", "off":
		return ForwardedNone, nil
	case "classic", "true", "x_forwarded_for":
		return ForwardedClassic, nil
	case "standard", "rfc7239", "forwarded":
		return ForwardedStandard, nil
	default:
		return 0, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "unknown forwarded header style %q", s)
	}
}
