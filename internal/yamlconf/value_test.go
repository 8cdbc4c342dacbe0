package yamlconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/feature"
)

type ValueTestSuite struct {
	suite.Suite
}

func (s *ValueTestSuite) TestAsBool() {
	testCases := []struct {
		input    string
		expected bool
		wantErr  error
	}{
		{input: "true", expected: true},
		{input: "False", expected: false},
		{input: "TRUE", expected: true},
		{input: "yes", wantErr: ErrTypeMismatch},
		{input: "1", wantErr: ErrTypeMismatch},
		{input: "on", wantErr: ErrTypeMismatch},
		{input: "[true]", wantErr: ErrTypeMismatch},
	}

	for _, tc := range testCases {
		s.Run(tc.input, func() {
			got, err := AsBool(mustParse(&s.Suite, tc.input))
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.NoError(err)
			s.Equal(tc.expected, got)
		})
	}
}

func (s *ValueTestSuite) TestIntegers() {
	n, err := AsUint16(mustParse(&s.Suite, "8080"))
	s.NoError(err)
	s.Equal(uint16(8080), n)

	_, err = AsUint16(mustParse(&s.Suite, "70000"))
	s.ErrorIs(err, ErrOutOfRange)

	_, err = AsUint32(mustParse(&s.Suite, "-1"))
	s.ErrorIs(err, ErrOutOfRange)

	_, err = AsInt64(mustParse(&s.Suite, "12abc"))
	s.ErrorIs(err, ErrTypeMismatch)

	_, err = AsUint8(mustParse(&s.Suite, "0x10"))
	s.ErrorIs(err, ErrTypeMismatch)

	i, err := AsInt(mustParse(&s.Suite, "-42"))
	s.NoError(err)
	s.Equal(-42, i)

	f, err := AsFloat64(mustParse(&s.Suite, "0.25"))
	s.NoError(err)
	s.InDelta(0.25, f, 1e-12)

	_, err = AsFloat64(mustParse(&s.Suite, ".nan"))
	s.Error(err)
}

func (s *ValueTestSuite) TestAsDuration() {
	testCases := []struct {
		input    string
		expected time.Duration
		wantErr  error
	}{
		{input: "90s", expected: 90 * time.Second},
		{input: "2h", expected: 7200 * time.Second},
		{input: "2h30m", expected: 2*time.Hour + 30*time.Minute},
		{input: "500ms", expected: 500 * time.Millisecond},
		{input: "30", expected: 30 * time.Second},
		{input: "0", expected: 0},
		{input: "-5s", wantErr: ErrInvalidDuration},
		{input: "5x", wantErr: ErrInvalidDuration},
		{input: "soon", wantErr: ErrInvalidDuration},
		{input: `""`, wantErr: ErrInvalidDuration},
		{input: "[5s]", wantErr: ErrTypeMismatch},
		{input: "99999999999999999999", wantErr: ErrOutOfRange},
	}

	for _, tc := range testCases {
		s.Run(tc.input, func() {
			got, err := AsDuration(mustParse(&s.Suite, tc.input))
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.NoError(err)
			s.Equal(tc.expected, got)
		})
	}
}

func (s *ValueTestSuite) TestAsSize() {
	testCases := []struct {
		input    string
		expected uint64
		wantErr  error
	}{
		{input: "512", expected: 512},
		{input: "1K", expected: 1000},
		{input: "1Ki", expected: 1024},
		{input: "10MiB", expected: 10 << 20},
		{input: "2G", expected: 2_000_000_000},
		{input: "4 kb", expected: 4000},
		{input: "-1K", wantErr: ErrInvalidSize},
		{input: "lots", wantErr: ErrInvalidSize},
		{input: "1Q", wantErr: ErrInvalidSize},
	}

	for _, tc := range testCases {
		s.Run(tc.input, func() {
			got, err := AsSize(mustParse(&s.Suite, tc.input))
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.NoError(err)
			s.Equal(tc.expected, got)
		})
	}

	_, err := AsSizeUint32(mustParse(&s.Suite, "5G"))
	s.ErrorIs(err, ErrOutOfRange)
}

func (s *ValueTestSuite) TestAsDomain() {
	testCases := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "example.com", expected: "example.com"},
		{input: "Example.COM.", expected: "example.com"},
		{input: "bücher.de", expected: "xn--bcher-kva.de"},
		{input: "localhost", expected: "localhost"},
		{input: "example..com", wantErr: true},
		{input: ".example.com", wantErr: true},
		{input: "exa mple.com", wantErr: true},
		{input: "a234567890123456789012345678901234567890123456789012345678901234.com", wantErr: true},
		{input: `""`, wantErr: true},
	}

	for _, tc := range testCases {
		s.Run(tc.input, func() {
			got, err := AsDomain(mustParse(&s.Suite, tc.input))
			if tc.wantErr {
				s.ErrorIs(err, ErrInvalidDomainName)
				return
			}
			s.NoError(err)
			s.Equal(tc.expected, got)
		})
	}
}

func (s *ValueTestSuite) TestAsURL() {
	u, err := AsURL(mustParse(&s.Suite, "https://geo.example.net/db.mmdb"), "http", "https")
	s.Require().NoError(err)
	s.Equal("geo.example.net", u.Hostname())

	_, err = AsURL(mustParse(&s.Suite, "ftp://geo.example.net/db"), "http", "https")
	s.ErrorIs(err, ErrInvalidURL)

	_, err = AsURL(mustParse(&s.Suite, "https:///nohost"), "https")
	s.ErrorIs(err, ErrInvalidURL)

	_, err = AsURL(mustParse(&s.Suite, "not a url"))
	s.ErrorIs(err, ErrInvalidURL)

	u, err = AsURL(mustParse(&s.Suite, "icap://127.0.0.1:1344/respmod"))
	s.NoError(err)
	s.Equal("icap", u.Scheme)
}

func (s *ValueTestSuite) TestAsRegexp() {
	c := NewContext()

	re, err := AsRegexp(c, mustParse(&s.Suite, `'^ads\.'`))
	s.Require().NoError(err)
	s.True(re.MatchString("ads.example.com"))

	_, err = AsRegexp(c, mustParse(&s.Suite, `"(["`))
	s.ErrorIs(err, ErrInvalidRegex)

	// Given a conversion without the regex capability
	c = NewContext(WithFeatures(feature.Of(feature.GeoIP)))

	// Then even a valid pattern is rejected as unsupported
	_, err = AsRegexp(c, mustParse(&s.Suite, `'^ok$'`))
	s.ErrorIs(err, ErrUnsupportedFeature)
}

func (s *ValueTestSuite) TestNames() {
	name, err := AsNodeName(mustParse(&s.Suite, "http-in.v4_1"))
	s.NoError(err)
	s.Equal("http-in.v4_1", name)

	_, err = AsNodeName(mustParse(&s.Suite, `"bad name"`))
	s.ErrorIs(err, ErrInvalidValue)

	_, err = AsASCII(mustParse(&s.Suite, `"tab\there"`))
	s.ErrorIs(err, ErrInvalidValue)
}

func TestValueSuite(t *testing.T) {
	suite.Run(t, new(ValueTestSuite))
}
