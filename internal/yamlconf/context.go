package yamlconf

import (
	"errors"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/filesys"
)

// Context is the per-call state threaded through a conversion: the key path
// of the node being converted plus the read-only settings of the call.
//
// A Context is owned by one goroutine. Use Fork to convert sub-trees in parallel.
type Context struct {
	path      Path
	features  feature.Set
	fs        filesys.ReadFS
	lookupDir string
}

// Option configures a Context.
type Option func(c *Context)

// WithFeatures restricts the capabilities visible to the conversion. The
// result is always a subset of feature.Linked: a Context can hide a linked
// capability but never enable one that was not built in.
func WithFeatures(s feature.Set) Option {
	return func(c *Context) {
		c.features = feature.Linked().Intersect(s)
	}
}

// WithFS sets the file system used to read referenced files.
func WithFS(fs filesys.ReadFS) Option {
	return func(c *Context) {
		c.fs = fs
	}
}

// WithLookupDir sets the directory relative file references resolve against,
// normally the directory of the main configuration file.
func WithLookupDir(dir string) Option {
	return func(c *Context) {
		c.lookupDir = dir
	}
}

// NewContext returns an empty Context. Without options it sees all linked
// capabilities and reads from the OS file system.
func NewContext(opts ...Option) *Context {
	c := &Context{
		features: feature.Linked(),
		fs:       filesys.OS(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Features returns the capabilities available to this conversion.
func (c *Context) Features() feature.Set { return c.features }

// FS returns the file system for referenced files.
func (c *Context) FS() filesys.ReadFS { return c.fs }

// LookupDir returns the directory relative file references resolve against.
func (c *Context) LookupDir() string { return c.lookupDir }

// Path returns a copy of the current key path.
func (c *Context) Path() Path {
	out := make(Path, len(c.path))
	copy(out, c.path)
	return out
}

// LastKey returns the innermost mapping key on the path as written in the
// document, or "" when the path ends in an index or is empty.
func (c *Context) LastKey() string {
	if len(c.path) == 0 {
		return ""
	}
	return c.path[len(c.path)-1].Key
}

// Fork returns a Context with the same settings and a private copy of the
// current path.
func (c *Context) Fork() *Context {
	return &Context{
		path:      c.Path(),
		features:  c.features,
		fs:        c.fs,
		lookupDir: c.lookupDir,
	}
}

// Key runs fn with k pushed on the path. The segment is popped when fn
// returns, failed or not, and any error from fn is qualified with the path
// as it was at the failure.
func (c *Context) Key(k string, fn func() error) error {
	c.path = append(c.path, KeySegment(k))
	defer c.pop()
	return c.qualify(fn())
}

// Index runs fn with sequence index i pushed on the path, like Key.
func (c *Context) Index(i int, fn func() error) error {
	c.path = append(c.path, IndexSegment(i))
	defer c.pop()
	return c.qualify(fn())
}

// Require fails with ErrUnsupportedFeature unless f is available.
func (c *Context) Require(f feature.Feature, v Node) error {
	if c.features.Has(f) {
		return nil
	}
	if req := f.Requires(); req != 0 && !c.features.Has(req) {
		return NewError(ErrUnsupportedFeature, v, "%s requires %s, which is not linked into this binary", f, req)
	}
	return NewError(ErrUnsupportedFeature, v, "%s is not linked into this binary", f)
}

func (c *Context) pop() {
	c.path = c.path[:len(c.path)-1]
}

// qualify prefixes the current path onto an unqualified error. Errors that
// are not *Error are wrapped as ErrInvalidValue.
func (c *Context) qualify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{
			Kind:      ErrInvalidValue,
			Path:      c.Path(),
			Err:       err,
			qualified: true,
		}
	}
	if !e.qualified {
		e.Path = append(c.Path(), e.Path...)
		e.qualified = true
	}
	return err
}

// Convert runs build on the root node with a fresh Context. It is the entry
// point for every top-level conversion.
func Convert[T any](v Node, build func(*Context, Node) (T, error), opts ...Option) (T, error) {
	c := NewContext(opts...)
	out, err := build(c, v)
	if err != nil {
		var zero T
		return zero, c.qualify(err)
	}
	return out, nil
}

// Qualify attaches c's current path to err the same way Key does. Builders
// that fail outside a Key/Index frame, such as cross-field checks, return
// through their caller's frame and need not call it.
func (c *Context) Qualify(err error) error { return c.qualify(err) }
