package geoip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

type GeoIPTestSuite struct {
	suite.Suite
}

func (s *GeoIPTestSuite) convert(doc string, opts ...yamlconf.Option) (Config, error) {
	n, err := yamlconf.Parse([]byte(doc))
	s.Require().NoError(err)
	return yamlconf.Convert(n, ParseConfig, opts...)
}

func (s *GeoIPTestSuite) TestDatabase() {
	cfg, err := s.convert(`
database: geo/country.mmdb
countries: [us, DEU, fr, us]
asns: 13335
mode: exclude
`, yamlconf.WithLookupDir("/etc/g3"))
	s.Require().NoError(err)

	s.Equal("/etc/g3/geo/country.mmdb", cfg.Database)
	s.Nil(cfg.Source)
	s.Equal([]string{"US", "DE", "FR"}, cfg.Countries)
	s.Equal([]uint32{13335}, cfg.ASNs)
	s.Equal(Exclude, cfg.Mode)
	s.Equal(DefaultRefreshInterval, cfg.RefreshInterval)

	s.False(cfg.Allows("de", 0))
	s.False(cfg.Allows("JP", 13335))
	s.True(cfg.Allows("JP", 1))
}

func (s *GeoIPTestSuite) TestSource() {
	cfg, err := s.convert("{source: 'https://geo.example.net/asn.mmdb', refresh_interval: 6h, country: CA}")
	s.Require().NoError(err)
	s.Equal("geo.example.net", cfg.Source.Host)
	s.Equal(6*time.Hour, cfg.RefreshInterval)
	s.True(cfg.Allows("CA", 0))
	s.False(cfg.Allows("US", 0))
}

func (s *GeoIPTestSuite) TestErrors() {
	testCases := []struct {
		name     string
		doc      string
		wantErr  error
		wantPath string
	}{
		{name: "both locations", doc: "{database: a.mmdb, source: 'https://x.example/a'}", wantErr: yamlconf.ErrInvalidValue},
		{name: "no location", doc: "{countries: [US]}", wantErr: yamlconf.ErrMissingKey},
		{name: "ftp source", doc: "{source: 'ftp://x.example/a'}", wantErr: yamlconf.ErrInvalidURL, wantPath: "source"},
		{name: "unknown country", doc: "{database: a, countries: [US, QQQ]}", wantErr: yamlconf.ErrInvalidValue, wantPath: "countries.1"},
		{name: "region is not a country", doc: "{database: a, countries: '001'}", wantErr: yamlconf.ErrInvalidValue, wantPath: "countries"},
		{name: "negative asn", doc: "{database: a, asns: [-1]}", wantErr: yamlconf.ErrOutOfRange, wantPath: "asns.0"},
		{name: "bad mode", doc: "{database: a, mode: both}", wantErr: yamlconf.ErrInvalidValue, wantPath: "mode"},
		{name: "refresh too often", doc: "{database: a, refresh_interval: 5s}", wantErr: yamlconf.ErrOutOfRange, wantPath: "refresh_interval"},
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

func (s *GeoIPTestSuite) TestNeedsCapability() {
	_, err := s.convert("{database: a}", yamlconf.WithFeatures(feature.Of(feature.Regex)))
	s.ErrorIs(err, yamlconf.ErrUnsupportedFeature)
}

func TestGeoIPSuite(t *testing.T) {
	suite.Run(t, new(GeoIPTestSuite))
}
