package httpconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

type HTTPTestSuite struct {
	suite.Suite
}

func (s *HTTPTestSuite) convert(doc string, opts ...yamlconf.Option) (ServerConfig, error) {
	n, err := yamlconf.Parse([]byte(doc))
	s.Require().NoError(err)
	return yamlconf.Convert(n, ParseServer, opts...)
}

func (s *HTTPTestSuite) TestParseServer() {
	cfg, err := s.convert(`
req_header_max_size: 32Ki
rsp-header-max-size: 128Ki
pipeline_size: 4
keepalive_timeout: 2m
forwarded_header: standard
server_id: edge-1
`)
	s.Require().NoError(err)

	expected := Default()
	expected.ReqHeaderMaxSize = 32 << 10
	expected.RspHeaderMaxSize = 128 << 10
	expected.PipelineSize = 4
	expected.KeepaliveTimeout = 2 * time.Minute
	expected.ForwardedHeader = ForwardedStandard
	expected.ServerID = "edge-1"
	s.Equal(expected, cfg)
}

func (s *HTTPTestSuite) TestForwardedHeader() {
	testCases := []struct {
		input    string
		expected ForwardedHeader
	}{
		{input: "none", expected: ForwardedNone},
		{input: "false", expected: ForwardedNone},
		{input: "classic", expected: ForwardedClassic},
		{input: "true", expected: ForwardedClassic},
		{input: "Standard", expected: ForwardedStandard},
	}

	for _, tc := range testCases {
		s.Run(tc.input, func() {
			cfg, err := s.convert("forwarded_header: " + tc.input)
			s.Require().NoError(err)
			s.Equal(tc.expected, cfg.ForwardedHeader)
		})
	}

	_, err := s.convert("forwarded_header: sometimes")
	s.ErrorIs(err, yamlconf.ErrInvalidValue)
}

func (s *HTTPTestSuite) TestErrors() {
	_, err := s.convert("pipeline_size: 0")
	s.ErrorIs(err, yamlconf.ErrOutOfRange)

	_, err = s.convert("req_header_max_size: 0")
	s.ErrorIs(err, yamlconf.ErrOutOfRange)

	_, err = s.convert("max_body: 1M")
	s.ErrorIs(err, yamlconf.ErrUnknownKey)

	_, err = s.convert("{}", yamlconf.WithFeatures(feature.Of(feature.Regex)))
	s.ErrorIs(err, yamlconf.ErrUnsupportedFeature)
}

func TestHTTPSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}
