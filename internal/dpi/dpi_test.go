package dpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

type DPITestSuite struct {
	suite.Suite
}

func (s *DPITestSuite) convert(doc string, opts ...yamlconf.Option) (Policy, error) {
	n, err := yamlconf.Parse([]byte(doc))
	s.Require().NoError(err)
	return yamlconf.Convert(n, ParsePolicy, opts...)
}

func (s *DPITestSuite) TestParsePolicy() {
	p, err := s.convert(`
policy:
  default: permit
  rules:
    - {action: forbid, suffix: bank.example}
protocols:
  ssh: false
port_map:
  8080: http1
  993: [imap, ssl]
max_depth: 2
data0_wait_timeout: 30s
data0_buffer_size: 8Ki
`)
	s.Require().NoError(err)

	s.True(p.ShouldInspect("news.example"))
	s.False(p.ShouldInspect("www.bank.example"))
	s.False(p.ProtocolEnabled("ssh"))
	s.True(p.ProtocolEnabled("smtp"))
	s.Equal([]string{"http1"}, p.PortMap[8080])
	s.Equal([]string{"imap", "ssl"}, p.PortMap[993])
	s.Equal(uint8(2), p.MaxDepth)
	s.Equal(30*time.Second, p.Data0WaitTimeout)
	s.Equal(8192, p.Data0BufferSize)
}

func (s *DPITestSuite) TestDefaults() {
	p, err := s.convert("{}")
	s.Require().NoError(err)
	s.Equal(Default().MaxDepth, p.MaxDepth)
	s.True(p.ShouldInspect("any.example"))
}

func (s *DPITestSuite) TestErrors() {
	testCases := []struct {
		name     string
		doc      string
		wantErr  error
		wantPath string
	}{
		{name: "unknown protocol", doc: "protocols: {gopher: true}", wantErr: yamlconf.ErrInvalidValue, wantPath: "protocols.gopher"},
		{name: "bad port", doc: "port_map: {http: http1}", wantErr: yamlconf.ErrOutOfRange, wantPath: "port_map.http"},
		{name: "unknown mapped protocol", doc: "port_map: {25: [smtp, x]}", wantErr: yamlconf.ErrInvalidValue, wantPath: "port_map.25.1"},
		{name: "depth zero", doc: "max_depth: 0", wantErr: yamlconf.ErrOutOfRange, wantPath: "max_depth"},
		{name: "bad policy", doc: "policy: [{action: skip, network: 10.0.0.0/8}]", wantErr: yamlconf.ErrInvalidValue, wantPath: "policy.0.action"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.convert(tc.doc)
			s.Require().ErrorIs(err, tc.wantErr)
			path, _ := yamlconf.PathOf(err)
			s.Equal(tc.wantPath, path.String())
		})
	}
}

func (s *DPITestSuite) TestNeedsACLRule() {
	// Given a view with dpi asked for but acl-rule left out
	_, err := s.convert("{}", yamlconf.WithFeatures(feature.Of(feature.DPI, feature.Regex)))

	// Then dpi is unavailable too
	s.ErrorIs(err, yamlconf.ErrUnsupportedFeature)
}

func TestDPISuite(t *testing.T) {
	suite.Run(t, new(DPITestSuite))
}
