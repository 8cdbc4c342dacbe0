package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/H1Skaak/g3/internal/filesys"
	"github.com/H1Skaak/g3/internal/log"
	"github.com/H1Skaak/g3/internal/netconf"
	"github.com/H1Skaak/g3/internal/resolver"
	"github.com/H1Skaak/g3/internal/route"
	"github.com/H1Skaak/g3/internal/sched"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

var (
	// ErrInvalidConfig is returned when the configuration file does not convert.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

// DefaultConfigPath is the configuration file, relative to the home directory.
const DefaultConfigPath = ".g3/g3.yaml"

// Config is one generation of the whole configuration. It is never modified
// after Parse returns; a reload builds a new one.
type Config struct {
	// Generation identifies this snapshot in logs.
	Generation uuid.UUID
	// Path is the file the snapshot was loaded from, empty for Parse.
	Path string

	Runtime   RuntimeConfig
	LogLevel  zapcore.Level
	Resolvers []resolver.Config
	Routes    map[string]route.Table
	Servers   []*ServerConfig
}

// RuntimeConfig holds the process wide settings.
type RuntimeConfig struct {
	// ThreadNumber is the number of worker threads, 0 for one per CPU.
	ThreadNumber int
	Affinity     sched.Affinity
}

// Server returns the server named name.
func (c *Config) Server(name string) (*ServerConfig, bool) {
	for _, s := range c.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Resolver returns the resolver named name.
func (c *Config) Resolver(name string) (resolver.Config, bool) {
	for _, r := range c.Resolvers {
		if r.Name == name {
			return r, true
		}
	}
	return resolver.Config{}, false
}

// Parse converts a whole configuration document. The first error aborts.
func Parse(data []byte, opts ...yamlconf.Option) (*Config, error) {
	root, err := yamlconf.Parse(data)
	if err != nil {
		return nil, err
	}
	p := &parser{}
	return yamlconf.Convert(root, p.build, opts...)
}

// ParsePartial is Parse that skips servers failing to convert instead of
// aborting. The returned Config holds every server that converted; the error
// combines the failures of the others. Errors outside the servers list
// still abort with a nil Config.
func ParsePartial(data []byte, opts ...yamlconf.Option) (*Config, error) {
	root, err := yamlconf.Parse(data)
	if err != nil {
		return nil, err
	}
	p := &parser{partial: true}
	cfg, err := yamlconf.Convert(root, p.build, opts...)
	if err != nil {
		return nil, err
	}
	return cfg, p.errs
}

// Provider loads a configuration snapshot.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider loads the configuration from a file.
type FSProvider struct {
	fs   filesys.ReadFS
	path string
	opts []yamlconf.Option
}

var _ Provider = (*FSProvider)(nil)

// New returns a provider for ~/.g3/g3.yaml on the OS file system.
func New() *FSProvider {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn("could not determine home directory", "error", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath))
}

// NewWithPath returns a provider reading path from fsys. Relative file
// references inside the document resolve against the directory of path.
func NewWithPath(fsys filesys.ReadFS, path string, opts ...yamlconf.Option) *FSProvider {
	return &FSProvider{
		fs:   fsys,
		path: path,
		opts: opts,
	}
}

// Path returns the configuration file path.
func (p *FSProvider) Path() string { return p.path }

// Load reads and converts the file.
func (p *FSProvider) Load() (*Config, error) {
	return p.load(Parse)
}

// LoadPartial reads and converts the file, skipping broken servers. See
// ParsePartial.
func (p *FSProvider) LoadPartial() (*Config, error) {
	return p.load(ParsePartial)
}

func (p *FSProvider) load(parse func([]byte, ...yamlconf.Option) (*Config, error)) (*Config, error) {
	data, err := p.fs.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfig, p.path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	opts := append([]yamlconf.Option{
		yamlconf.WithFS(p.fs),
		yamlconf.WithLookupDir(filepath.Dir(p.path)),
	}, p.opts...)
	cfg, err := parse(data, opts...)
	if cfg == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Path = p.path
	log.Debug("configuration loaded", "path", p.path, "generation", cfg.Generation.String(), "servers", len(cfg.Servers))
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

type parser struct {
	partial bool
	errs    error
}

var _documentKeys = yamlconf.NewAliases(
	[]string{"resolvers", "resolver"},
	[]string{"routes", "route"},
	[]string{"servers", "server"},
)

func (p *parser) build(c *yamlconf.Context, v yamlconf.Node) (*Config, error) {
	cfg := &Config{
		Generation: uuid.New(),
		LogLevel:   zapcore.InfoLevel,
		Routes:     make(map[string]route.Table),
	}
	if v.Kind() == yamlconf.KindNull {
		return cfg, nil
	}

	var (
		serversKey string
		serverRoot yamlconf.Node
	)
	err := _documentKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "runtime":
			cfg.Runtime, err = parseRuntime(c, v)
		case "log":
			cfg.LogLevel, err = parseLogLevel(c, v)
		case "resolvers":
			cfg.Resolvers, err = parseResolvers(c, v)
		case "routes":
			err = yamlconf.ForEachKV(c, v, func(name string, v yamlconf.Node) error {
				t, err := route.ParseTable(c, v)
				cfg.Routes[name] = t
				return err
			})
		case "servers":
			serversKey, serverRoot = c.LastKey(), v
			cfg.Servers, err = p.servers(c, v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if serversKey != "" {
		err = c.Key(serversKey, func() error {
			return p.checkServers(c, cfg, serverRoot)
		})
		if err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// servers converts the server list concurrently, one forked Context per
// entry. In fail-fast mode the error of the lowest index is returned.
func (p *parser) servers(c *yamlconf.Context, v yamlconf.Node) ([]*ServerConfig, error) {
	items, err := v.Items()
	if err != nil {
		return nil, err
	}

	out := make([]*ServerConfig, len(items))
	errs := make([]error, len(items))
	var grp errgroup.Group
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for i, item := range items {
		fc := c.Fork()
		grp.Go(func() error {
			errs[i] = fc.Index(i, func() error {
				srv, err := parseServer(fc, item)
				if err != nil {
					return err
				}
				srv.index = i
				out[i] = srv
				return nil
			})
			return nil
		})
	}
	_ = grp.Wait()

	if !p.partial {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	kept := out[:0]
	for i, srv := range out {
		if errs[i] != nil {
			p.errs = multierr.Append(p.errs, errs[i])
			continue
		}
		kept = append(kept, srv)
	}
	return kept, nil
}

// checkServers runs the checks spanning several servers: unique names and a
// resolver for eagerly resolved upstreams. It runs inside the servers key.
func (p *parser) checkServers(c *yamlconf.Context, cfg *Config, list yamlconf.Node) error {
	items, _ := list.Items()
	seen := make(map[string]struct{}, len(cfg.Servers))
	kept := cfg.Servers[:0]
	for _, srv := range cfg.Servers {
		i := srv.index
		err := c.Index(i, func() error {
			if _, dup := seen[srv.Name]; dup {
				return c.Key("name", func() error {
					nv, _, _ := items[i].Get("name")
					return yamlconf.NewError(yamlconf.ErrInvalidValue, nv, "duplicate server name %q", srv.Name)
				})
			}
			seen[srv.Name] = struct{}{}
			if srv.Upstream != nil && srv.Upstream.Resolve == netconf.ResolveEager && len(cfg.Resolvers) == 0 {
				return c.Key("upstream", func() error {
					uv, _, _ := items[i].Get("upstream")
					return yamlconf.NewError(yamlconf.ErrMissingKey, uv, "eager resolution needs a resolver")
				})
			}
			return nil
		})
		if err != nil {
			if !p.partial {
				return err
			}
			p.errs = multierr.Append(p.errs, err)
			continue
		}
		kept = append(kept, srv)
	}
	cfg.Servers = kept
	return nil
}

var _runtimeKeys = yamlconf.NewAliases(
	[]string{"thread_number", "threads"},
	[]string{"worker_affinity", "cpu_affinity"},
)

func parseRuntime(c *yamlconf.Context, v yamlconf.Node) (RuntimeConfig, error) {
	var rc RuntimeConfig
	err := _runtimeKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "thread_number":
			var n uint16
			n, err = yamlconf.AsUint16(v)
			rc.ThreadNumber = int(n)
		case "worker_affinity":
			rc.Affinity, err = sched.ParseAffinity(c, v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return RuntimeConfig{}, err
	}
	if rc.Affinity.Count > 0 && rc.ThreadNumber == 0 {
		rc.ThreadNumber = rc.Affinity.Count
	}
	return rc, nil
}

// parseLogLevel accepts "log: warn" or "log: {level: warn}".
func parseLogLevel(c *yamlconf.Context, v yamlconf.Node) (zapcore.Level, error) {
	if v.Kind() == yamlconf.KindScalar {
		return asLevel(v)
	}
	level := zapcore.InfoLevel
	err := yamlconf.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "level":
			level, err = asLevel(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	return level, err
}

func asLevel(v yamlconf.Node) (zapcore.Level, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return 0, err
	}
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return 0, yamlconf.WrapError(yamlconf.ErrInvalidValue, v, err)
	}
	return l, nil
}

func parseResolvers(c *yamlconf.Context, v yamlconf.Node) ([]resolver.Config, error) {
	var out []resolver.Config
	seen := make(map[string]struct{})
	err := yamlconf.ForEachItem(c, v, func(_ int, v yamlconf.Node) error {
		rc, err := resolver.ParseConfig(c, v)
		if err != nil {
			return err
		}
		if _, dup := seen[rc.Name]; dup {
			return c.Key("name", func() error {
				nv, _, _ := v.Get("name")
				return yamlconf.NewError(yamlconf.ErrInvalidValue, nv, "duplicate resolver name %q", rc.Name)
			})
		}
		seen[rc.Name] = struct{}{}
		out = append(out, rc)
		return nil
	})
	return out, err
}
