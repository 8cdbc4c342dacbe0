// Package geoip converts the settings of the IP geolocation lookup used by
// servers to filter clients by country or autonomous system.
package geoip

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/filesys"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// DefaultRefreshInterval is how often a remote source is fetched again.
const DefaultRefreshInterval = 24 * time.Hour

// Mode tells how the country and ASN lists are applied.
type Mode uint8

const (
	// Include accepts only clients located in the lists.
	Include Mode = iota
	// Exclude rejects clients located in the lists.
	Exclude
)

func (m Mode) String() string {
	if m == Exclude {
		return "exclude"
	}
	return "include"
}

// Config is a geolocation lookup. Exactly one of Database and Source is set.
type Config struct {
	// Database is the path of a local database file.
	Database string
	// Source is a http(s) location the database is downloaded from.
	Source          *url.URL
	Countries       []string
	ASNs            []uint32
	Mode            Mode
	RefreshInterval time.Duration
}

// Allows reports whether a client located in country (ISO 3166 alpha-2)
// with autonomous system asn passes the configured lists. With empty lists
// every client passes.
func (c Config) Allows(country string, asn uint32) bool {
	if len(c.Countries) == 0 && len(c.ASNs) == 0 {
		return true
	}
	listed := slices.Contains(c.Countries, strings.ToUpper(country)) || slices.Contains(c.ASNs, asn)
	if c.Mode == Exclude {
		return !listed
	}
	return listed
}

var _configKeys = yamlconf.NewAliases(
	[]string{"database", "db", "file"},
	[]string{"source", "url"},
	[]string{"countries", "country"},
	[]string{"asns", "asn"},
	[]string{"refresh_interval", "update_interval"},
)

// ParseConfig converts the geoip mapping. It needs the geoip capability.
func ParseConfig(c *yamlconf.Context, v yamlconf.Node) (Config, error) {
	if err := c.Require(feature.GeoIP, v); err != nil {
		return Config{}, err
	}

	cfg := Config{RefreshInterval: DefaultRefreshInterval}
	err := _configKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "database":
			var p string
			if p, err = yamlconf.AsString(v); err == nil {
				if strings.TrimSpace(p) == "" {
					return yamlconf.NewError(yamlconf.ErrInvalidValue, v, "empty database path")
				}
				cfg.Database = filesys.Resolve(c.LookupDir(), strings.TrimSpace(p))
			}
		case "source":
			cfg.Source, err = yamlconf.AsURL(v, "http", "https")
		case "countries":
			cfg.Countries, err = parseCountries(c, v)
		case "asns":
			err = yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
				asn, err := yamlconf.AsUint32(v)
				cfg.ASNs = append(cfg.ASNs, asn)
				return err
			})
		case "mode":
			cfg.Mode, err = asMode(v)
		case "refresh_interval":
			cfg.RefreshInterval, err = yamlconf.AsDuration(v)
			if err == nil && cfg.RefreshInterval < time.Minute {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "refresh interval must be at least 1m")
			}
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return Config{}, err
	}

	switch {
	case cfg.Database != "" && cfg.Source != nil:
		return Config{}, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "database and source are mutually exclusive")
	case cfg.Database == "" && cfg.Source == nil:
		return Config{}, yamlconf.NewError(yamlconf.ErrMissingKey, v, "one of database or source is required")
	}
	return cfg, nil
}

func parseCountries(c *yamlconf.Context, v yamlconf.Node) ([]string, error) {
	var out []string
	err := yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
		s, err := yamlconf.AsString(v)
		if err != nil {
			return err
		}
		region, err := language.ParseRegion(strings.TrimSpace(s))
		if err != nil {
			return yamlconf.WrapError(yamlconf.ErrInvalidValue, v, err)
		}
		if !region.IsCountry() {
			return yamlconf.NewError(yamlconf.ErrInvalidValue, v, "%q is not a country code", s)
		}
		code := region.String()
		if !slices.Contains(out, code) {
			out = append(out, code)
		}
		return nil
	})
	return out, err
}

func asMode(v yamlconf.Node) (Mode, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return 0, err
	}
	switch yamlconf.NormalizeKey(s) {
	case "include", "allow":
		return Include, nil
	case "exclude", "deny":
		return Exclude, nil
	default:
		return 0, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "unknown mode %q", s)
	}
}
