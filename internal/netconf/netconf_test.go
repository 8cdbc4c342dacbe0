package netconf

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

type NetconfTestSuite struct {
	suite.Suite
}

func (s *NetconfTestSuite) parse(doc string) yamlconf.Node {
	n, err := yamlconf.Parse([]byte(doc))
	s.Require().NoError(err)
	return n
}

func (s *NetconfTestSuite) TestParseEndpoint() {
	testCases := []struct {
		name     string
		doc      string
		expected Endpoint
		wantErr  error
		wantPath string
	}{
		{
			name:     "scalar domain",
			doc:      "backend.example.net:443",
			expected: Endpoint{Host: Host{Domain: "backend.example.net"}, Port: 443},
		},
		{
			name:     "scalar ipv6",
			doc:      `"[2001:db8::1]:8443"`,
			expected: Endpoint{Host: Host{Addr: netip.MustParseAddr("2001:db8::1")}, Port: 8443},
		},
		{
			name:     "mapping with eager resolve",
			doc:      "{host: Backend.Example.NET, port: 80, resolve: eager}",
			expected: Endpoint{Host: Host{Domain: "backend.example.net"}, Port: 80, Resolve: ResolveEager},
		},
		{
			name:     "bad domain reported at host",
			doc:      "{host: example..com, port: 443}",
			wantErr:  yamlconf.ErrInvalidDomainName,
			wantPath: "host",
		},
		{
			name:     "port zero",
			doc:      "{host: 10.0.0.1, port: 0}",
			wantErr:  yamlconf.ErrOutOfRange,
			wantPath: "port",
		},
		{
			name:    "missing port",
			doc:     "{host: 10.0.0.1}",
			wantErr: yamlconf.ErrMissingKey,
		},
		{
			name:    "scalar without port",
			doc:     "backend.example.net",
			wantErr: yamlconf.ErrInvalidAddress,
		},
		{
			name:     "unknown key",
			doc:      "{host: a.example, port: 1, weight: 3}",
			wantErr:  yamlconf.ErrUnknownKey,
			wantPath: "weight",
		},
		{
			name:     "host alias",
			doc:      "{addr: b.example, port: 443}",
			expected: Endpoint{Host: Host{Domain: "b.example"}, Port: 443},
		},
		{
			name:     "host given twice under different spellings",
			doc:      "{host: a.example, addr: b.example, port: 443}",
			wantErr:  yamlconf.ErrDuplicateKey,
			wantPath: "addr",
		},
		{
			name:     "unknown resolve mode",
			doc:      "{host: a.example, port: 1, resolve: sometimes}",
			wantErr:  yamlconf.ErrInvalidValue,
			wantPath: "resolve",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := yamlconf.Convert(s.parse(tc.doc), ParseEndpoint)
			if tc.wantErr != nil {
				s.Require().ErrorIs(err, tc.wantErr)
				path, _ := yamlconf.PathOf(err)
				s.Equal(tc.wantPath, path.String())
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, got)
		})
	}
}

func (s *NetconfTestSuite) TestEndpointResolveNeedsCapability() {
	// Given a build view without the resolve capability
	opts := yamlconf.WithFeatures(feature.Of(feature.Regex))

	// When an endpoint selects a resolve mode
	_, err := yamlconf.Convert(s.parse("{host: a.example, port: 53, resolve: eager}"), ParseEndpoint, opts)

	// Then it is rejected instead of ignored
	s.ErrorIs(err, yamlconf.ErrUnsupportedFeature)
	path, _ := yamlconf.PathOf(err)
	s.Equal("resolve", path.String())

	// And an endpoint without the key still converts
	ep, err := yamlconf.Convert(s.parse("a.example:53"), ParseEndpoint, opts)
	s.NoError(err)
	s.Equal("a.example:53", ep.String())
}

func (s *NetconfTestSuite) TestParseListen() {
	testCases := []struct {
		name     string
		doc      string
		expected ListenConfig
		wantErr  error
	}{
		{
			name:     "bare port",
			doc:      "8080",
			expected: ListenConfig{Address: netip.MustParseAddrPort("[::]:8080"), Backlog: DefaultBacklog, Instance: 1},
		},
		{
			name:     "address scalar",
			doc:      "127.0.0.1:1080",
			expected: ListenConfig{Address: netip.MustParseAddrPort("127.0.0.1:1080"), Backlog: DefaultBacklog, Instance: 1},
		},
		{
			name: "mapping",
			doc:  "{address: '[::]:443', backlog: 256, ipv6_only: true, instance: 4}",
			expected: ListenConfig{
				Address:  netip.MustParseAddrPort("[::]:443"),
				Backlog:  256,
				IPv6Only: true,
				Instance: 4,
			},
		},
		{name: "ipv6 only on ipv4", doc: "{address: '0.0.0.0:443', ipv6_only: true}", wantErr: yamlconf.ErrInvalidValue},
		{name: "too many instances", doc: "{address: '0.0.0.0:443', instance: 1000}", wantErr: yamlconf.ErrOutOfRange},
		{name: "no address", doc: "{backlog: 10}", wantErr: yamlconf.ErrMissingKey},
		{name: "hostname is not an address", doc: "localhost:80", wantErr: yamlconf.ErrInvalidAddress},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := yamlconf.Convert(s.parse(tc.doc), ParseListen)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, got)
		})
	}
}

func (s *NetconfTestSuite) TestAsPrefix() {
	p, err := AsPrefix(s.parse("10.1.2.3/8"))
	s.Require().NoError(err)
	s.Equal(netip.MustParsePrefix("10.0.0.0/8"), p)

	p, err = AsPrefix(s.parse("192.168.1.1"))
	s.Require().NoError(err)
	s.Equal(32, p.Bits())

	p, err = AsPrefix(s.parse("2001:db8::/32"))
	s.Require().NoError(err)
	s.True(p.Addr().Is6())

	_, err = AsPrefix(s.parse("10.0.0.0/33"))
	s.ErrorIs(err, yamlconf.ErrInvalidAddress)
}

func (s *NetconfTestSuite) TestSpeedLimit() {
	l, err := yamlconf.Convert(s.parse("10M"), ParseSpeedLimit)
	s.Require().NoError(err)
	s.Equal(SpeedLimit{ShiftMillis: DefaultShiftMillis, MaxNorth: 10_000_000, MaxSouth: 10_000_000}, l)

	l, err = yamlconf.Convert(s.parse("{shift: 8, upload: 1Mi}"), ParseSpeedLimit)
	s.Require().NoError(err)
	s.Equal(SpeedLimit{ShiftMillis: 8, MaxNorth: 1 << 20}, l)
	s.False(l.IsUnlimited())

	_, err = yamlconf.Convert(s.parse("{shift_millis: 0}"), ParseSpeedLimit)
	s.ErrorIs(err, yamlconf.ErrOutOfRange)
}

func (s *NetconfTestSuite) TestTCPMiscOpts() {
	o, err := yamlconf.Convert(s.parse("{no_delay: true, mss: 1400, keepalive: 60s}"), ParseTCPMiscOpts)
	s.Require().NoError(err)
	s.Require().NotNil(o.NoDelay)
	s.True(*o.NoDelay)
	s.Equal(uint32(1400), *o.MaxSegmentSize)
	s.Equal(time.Minute, *o.KeepaliveIdle)
	s.Nil(o.TimeToLive)

	_, err = yamlconf.Convert(s.parse("{tos: 300}"), ParseTCPMiscOpts)
	s.ErrorIs(err, yamlconf.ErrOutOfRange)
}

func (s *NetconfTestSuite) TestQuicTransport() {
	q, err := yamlconf.Convert(s.parse("{max_idle_timeout: 30s, keep_alive_interval: 10s, receive_window: 16Mi}"), ParseQuicTransport)
	s.Require().NoError(err)
	s.Equal(30*time.Second, q.MaxIdleTimeout)
	s.Equal(uint32(16<<20), q.ReceiveWindow)
	s.Equal(uint32(100), q.MaxBidiStreams)

	_, err = yamlconf.Convert(s.parse("{max_idle_timeout: 5s, keep_alive_interval: 10s}"), ParseQuicTransport)
	s.ErrorIs(err, yamlconf.ErrInvalidValue)

	_, err = yamlconf.Convert(s.parse("{}"), ParseQuicTransport, yamlconf.WithFeatures(feature.Of(feature.HTTP)))
	s.ErrorIs(err, yamlconf.ErrUnsupportedFeature)
}

func TestNetconfSuite(t *testing.T) {
	suite.Run(t, new(NetconfTestSuite))
}
