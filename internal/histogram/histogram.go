// Package histogram converts the distribution settings of duration and size
// metrics and builds the matching Prometheus collectors.
//
// A plain list is shorthand for bucket bounds:
//
//	duration_histogram: [0.005, 0.01, 0.1, 1, 10]
//
// a mapping selects buckets or quantiles explicitly:
//
//	duration_histogram:
//	  quantiles: [0.5, 0.9, 0.99]
//	  rotate: 10s
package histogram

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// DefaultRotate is the sliding window of quantile summaries.
const DefaultRotate = 4 * time.Second

// Config is either a bucket histogram or a quantile summary.
type Config struct {
	// Buckets are strictly increasing upper bounds, kept as written.
	Buckets []float64
	// Quantiles are each in (0, 1).
	Quantiles []float64
	Rotate    time.Duration
}

// IsSummary reports whether the config describes quantiles.
func (c Config) IsSummary() bool { return len(c.Quantiles) > 0 }

var _configKeys = yamlconf.NewAliases(
	[]string{"buckets", "bucket"},
	[]string{"quantiles", "quantile"},
	[]string{"rotate", "rotate_interval"},
)

// ParseConfig converts a bucket list or a {buckets | quantiles, rotate}
// mapping. It needs the histogram capability.
func ParseConfig(c *yamlconf.Context, v yamlconf.Node) (Config, error) {
	if err := c.Require(feature.Histogram, v); err != nil {
		return Config{}, err
	}

	cfg := Config{Rotate: DefaultRotate}
	if v.Kind() == yamlconf.KindSequence {
		buckets, err := parseBuckets(c, v)
		if err != nil {
			return Config{}, err
		}
		cfg.Buckets = buckets
		return cfg, nil
	}

	err := _configKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "buckets":
			cfg.Buckets, err = parseBuckets(c, v)
		case "quantiles":
			cfg.Quantiles, err = parseQuantiles(c, v)
		case "rotate":
			cfg.Rotate, err = yamlconf.AsDuration(v)
			if err == nil && cfg.Rotate == 0 {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "rotate must be positive")
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
	case len(cfg.Buckets) > 0 && len(cfg.Quantiles) > 0:
		return Config{}, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "buckets and quantiles are mutually exclusive")
	case len(cfg.Buckets) == 0 && len(cfg.Quantiles) == 0:
		return Config{}, yamlconf.NewError(yamlconf.ErrMissingKey, v, "one of buckets or quantiles is required")
	}
	return cfg, nil
}

func parseBuckets(c *yamlconf.Context, v yamlconf.Node) ([]float64, error) {
	var out []float64
	err := yamlconf.ForEachItem(c, v, func(_ int, v yamlconf.Node) error {
		f, err := yamlconf.AsFloat64(v)
		if err != nil {
			return err
		}
		if n := len(out); n > 0 && f <= out[n-1] {
			return yamlconf.NewError(yamlconf.ErrNonMonotonicBuckets, v, "%g does not follow %g", f, out[n-1])
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "empty bucket list")
	}
	return out, nil
}

func parseQuantiles(c *yamlconf.Context, v yamlconf.Node) ([]float64, error) {
	var out []float64
	err := yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
		q, err := yamlconf.AsFloat64(v)
		if err != nil {
			return err
		}
		if q <= 0 || q >= 1 {
			return yamlconf.NewError(yamlconf.ErrOutOfRange, v, "quantile %g is not in (0, 1)", q)
		}
		out = append(out, q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "empty quantile list")
	}
	return out, nil
}

// Collector returns an unregistered histogram or summary for the config.
func (c Config) Collector(namespace, name, help string) prometheus.Collector {
	if c.IsSummary() {
		objectives := make(map[float64]float64, len(c.Quantiles))
		for _, q := range c.Quantiles {
			objectives[q] = math.Min(q, 1-q) / 10
		}
		return prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       name,
			Help:       help,
			Objectives: objectives,
			MaxAge:     c.Rotate,
		})
	}
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   c.Buckets,
	})
}
