package config

import (
	"slices"
	"time"

	"github.com/H1Skaak/g3/internal/acl"
	"github.com/H1Skaak/g3/internal/dpi"
	"github.com/H1Skaak/g3/internal/geoip"
	"github.com/H1Skaak/g3/internal/histogram"
	"github.com/H1Skaak/g3/internal/httpconf"
	"github.com/H1Skaak/g3/internal/log"
	"github.com/H1Skaak/g3/internal/netconf"
	"github.com/H1Skaak/g3/internal/tlsconf"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

const (
	// DefaultIdleCheckDuration is the interval between idle checks of a task.
	DefaultIdleCheckDuration = 5 * time.Minute
	// MaxIdleCheckDuration caps task_idle_check_duration; larger values are lowered.
	MaxIdleCheckDuration = 30 * time.Minute
	// DefaultIdleMaxCount is the number of idle checks before a task is closed.
	DefaultIdleMaxCount = 1
	// DefaultCopyBufferSize is the relay buffer of one direction of a task.
	DefaultCopyBufferSize = 16 << 10
	// DefaultCopyYieldSize is the amount copied before a relay yields.
	DefaultCopyYieldSize = 1 << 20
)

// ServerType is the kind of a server entry.
type ServerType int

const (
	TCPStream ServerType = iota + 1
	TCPTProxy
	TLSStream
	HTTPProxy
	SOCKSProxy
)

var _serverTypes = map[string]ServerType{
	"tcp_stream":  TCPStream,
	"tcp_tproxy":  TCPTProxy,
	"tls_stream":  TLSStream,
	"http_proxy":  HTTPProxy,
	"socks_proxy": SOCKSProxy,
}

func (t ServerType) String() string {
	for name, st := range _serverTypes {
		if st == t {
			return name
		}
	}
	return "unknown"
}

// _typeKeys lists the keys a server type accepts on top of the common ones.
var _typeKeys = map[ServerType][]string{
	TCPStream:  {"upstream", "tls_client"},
	TCPTProxy:  {},
	TLSStream:  {"upstream", "tls_server", "tls_client", "quic"},
	HTTPProxy:  {"tls_server", "tls_client", "http", "dst_host_filter", "dpi", "quic"},
	SOCKSProxy: {"dst_host_filter", "dpi"},
}

// ServerConfig is one entry of the servers list. Optional sections are nil
// when absent.
type ServerConfig struct {
	Name         string
	Type         ServerType
	Escaper      string
	Auditor      string
	SharedLogger string

	Listen         netconf.ListenConfig
	ListenInWorker bool
	Upstream       *netconf.Endpoint

	TLSServer     *tlsconf.ServerConfig
	TLSClient     *tlsconf.ClientConfig
	IngressFilter *acl.RuleSet
	DstHostFilter *acl.RuleSet
	DPI           *dpi.Policy
	HTTP          *httpconf.ServerConfig
	Quic          *netconf.QuicTransport
	GeoIP         *geoip.Config

	SpeedLimit     netconf.SpeedLimit
	MiscOpts       netconf.TCPMiscOpts
	CopyBufferSize int
	CopyYieldSize  int

	IdleCheckDuration       time.Duration
	IdleMaxCount            int
	FlushTaskLogOnCreated   bool
	FlushTaskLogOnConnected bool
	TaskLogFlushInterval    time.Duration

	ExtraMetricsTags  map[string]string
	DurationHistogram *histogram.Config

	// Position is where the entry starts in the source document.
	Position yamlconf.Position

	index       int
	fingerprint uint64
}

func newServer(pos yamlconf.Position) *ServerConfig {
	return &ServerConfig{
		Position:          pos,
		CopyBufferSize:    DefaultCopyBufferSize,
		CopyYieldSize:     DefaultCopyYieldSize,
		IdleCheckDuration: DefaultIdleCheckDuration,
		IdleMaxCount:      DefaultIdleMaxCount,
	}
}

// parseServer converts one server mapping. The type is read first since it
// decides which keys are valid.
func parseServer(c *yamlconf.Context, v yamlconf.Node) (*ServerConfig, error) {
	tv, ok, err := v.Get("type")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, yamlconf.MissingKey(v, "type")
	}
	var st ServerType
	err = c.Key("type", func() error {
		var err error
		st, err = asServerType(tv)
		return err
	})
	if err != nil {
		return nil, err
	}

	srv := newServer(v.Pos())
	srv.Type = st
	var hasListen bool
	err = _serverKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		if k == "listen" {
			hasListen = true
		}
		return srv.set(c, k, v)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case srv.Name == "":
		return nil, yamlconf.MissingKey(v, "name")
	case srv.Escaper == "":
		return nil, yamlconf.MissingKey(v, "escaper")
	case !hasListen:
		return nil, yamlconf.MissingKey(v, "listen")
	case srv.Upstream == nil && (srv.Type == TCPStream || srv.Type == TLSStream):
		return nil, yamlconf.MissingKey(v, "upstream")
	case srv.TLSServer == nil && srv.Type == TLSStream:
		return nil, yamlconf.MissingKey(v, "tls_server")
	}
	if srv.IdleCheckDuration > MaxIdleCheckDuration {
		srv.IdleCheckDuration = MaxIdleCheckDuration
	}
	srv.fingerprint = fingerprint(v, srv.material())
	return srv, nil
}

// material is the certificate content the server loaded from files.
func (srv *ServerConfig) material() [][]byte {
	var out [][]byte
	if srv.TLSServer != nil {
		out = append(out, srv.TLSServer.Material()...)
	}
	if srv.TLSClient != nil {
		out = append(out, srv.TLSClient.Material()...)
	}
	return out
}

func asServerType(v yamlconf.Node) (ServerType, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return 0, err
	}
	st, ok := _serverTypes[yamlconf.NormalizeKey(s)]
	if !ok {
		return 0, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "unknown server type %q", s)
	}
	return st, nil
}

func (srv *ServerConfig) set(c *yamlconf.Context, k string, v yamlconf.Node) error {
	if !srv.Type.accepts(k) {
		return yamlconf.NewError(yamlconf.ErrUnknownKey, v, "%q is not valid for %s servers", k, srv.Type)
	}

	var err error
	switch k {
	case "type":
		// already read
	case "name":
		srv.Name, err = yamlconf.AsNodeName(v)
	case "escaper":
		srv.Escaper, err = yamlconf.AsNodeName(v)
	case "auditor":
		srv.Auditor, err = yamlconf.AsNodeName(v)
	case "shared_logger":
		srv.SharedLogger, err = yamlconf.AsASCII(v)
	case "listen":
		srv.Listen, err = netconf.ParseListen(c, v)
	case "listen_in_worker":
		srv.ListenInWorker, err = yamlconf.AsBool(v)
	case "upstream":
		srv.Upstream, err = parseOptional(c, v, netconf.ParseEndpoint)
	case "tls_server":
		srv.TLSServer, err = parseOptional(c, v, tlsconf.ParseServer)
	case "tls_client":
		srv.TLSClient, err = parseOptional(c, v, tlsconf.ParseClient)
	case "ingress_network_filter":
		srv.IngressFilter, err = parseOptional(c, v, acl.ParseNetworkFilter)
	case "dst_host_filter":
		srv.DstHostFilter, err = parseOptional(c, v, acl.ParseRuleSet)
	case "dpi":
		srv.DPI, err = parseOptional(c, v, dpi.ParsePolicy)
	case "http":
		srv.HTTP, err = parseOptional(c, v, httpconf.ParseServer)
	case "quic":
		srv.Quic, err = parseOptional(c, v, netconf.ParseQuicTransport)
	case "geoip":
		srv.GeoIP, err = parseOptional(c, v, geoip.ParseConfig)
	case "duration_histogram":
		srv.DurationHistogram, err = parseOptional(c, v, histogram.ParseConfig)
	case "tcp_sock_speed_limit":
		if spelled := c.LastKey(); slices.Contains(_deprecatedKeys, spelled) {
			log.Warn("deprecated config key, use tcp_sock_speed_limit instead",
				"key", spelled, "path", c.Path().String(), "line", v.Pos().Line)
		}
		srv.SpeedLimit, err = netconf.ParseSpeedLimit(c, v)
	case "tcp_misc_opts":
		srv.MiscOpts, err = netconf.ParseTCPMiscOpts(c, v)
	case "tcp_copy_buffer_size":
		srv.CopyBufferSize, err = yamlconf.AsSizeInt(v)
	case "tcp_copy_yield_size":
		srv.CopyYieldSize, err = yamlconf.AsSizeInt(v)
	case "task_idle_check_duration":
		srv.IdleCheckDuration, err = yamlconf.AsDuration(v)
		if err == nil && srv.IdleCheckDuration == 0 {
			err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "idle check duration must be positive")
		}
	case "task_idle_max_count":
		srv.IdleMaxCount, err = yamlconf.AsUsize(v)
	case "flush_task_log_on_created":
		srv.FlushTaskLogOnCreated, err = yamlconf.AsBool(v)
	case "flush_task_log_on_connected":
		srv.FlushTaskLogOnConnected, err = yamlconf.AsBool(v)
	case "task_log_flush_interval":
		srv.TaskLogFlushInterval, err = yamlconf.AsDuration(v)
	case "extra_metrics_tags":
		srv.ExtraMetricsTags, err = parseMetricsTags(c, v)
	default:
		err = yamlconf.UnknownKey(k, v)
	}
	return err
}

var _serverKeys = yamlconf.NewAliases(
	[]string{"tls_server", "tls", "tls_server_config"},
	[]string{"tls_client", "tls_client_config"},
	[]string{"ingress_network_filter", "ingress_net_filter"},
	[]string{"upstream", "upstream_addr", "proxy_pass"},
	[]string{"duration_histogram", "task_duration_histogram"},
	[]string{"tcp_sock_speed_limit", "tcp_conn_speed_limit", "tcp_conn_limit", "conn_limit"},
)

// _deprecatedKeys still work as tcp_sock_speed_limit but log a warning.
var _deprecatedKeys = []string{"tcp_conn_speed_limit", "tcp_conn_limit", "conn_limit"}

// accepts reports whether k is valid for t. Keys no type lists are common.
func (t ServerType) accepts(k string) bool {
	for _, keys := range _typeKeys {
		if slices.Contains(keys, k) {
			return slices.Contains(_typeKeys[t], k)
		}
	}
	return true
}

// parseOptional runs a value builder and keeps the result behind a pointer.
func parseOptional[T any](c *yamlconf.Context, v yamlconf.Node, build func(*yamlconf.Context, yamlconf.Node) (T, error)) (*T, error) {
	out, err := build(c, v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func parseMetricsTags(c *yamlconf.Context, v yamlconf.Node) (map[string]string, error) {
	tags := make(map[string]string, v.Len())
	err := yamlconf.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		value, err := yamlconf.AsNodeName(v)
		if err != nil {
			return err
		}
		tags[k] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}
