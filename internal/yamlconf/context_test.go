package yamlconf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/feature"
)

type ContextTestSuite struct {
	suite.Suite
}

func (s *ContextTestSuite) TestPathRestoredAfterFailure() {
	// Given a context inside a nested frame that fails
	c := NewContext()
	err := c.Key("servers", func() error {
		return c.Index(0, func() error {
			return c.Key("listen", func() error {
				return NewError(ErrInvalidAddress, Node{}, "bad")
			})
		})
	})

	// Then the error carries the full path and the context is back at the root
	s.Require().ErrorIs(err, ErrInvalidAddress)
	path, ok := PathOf(err)
	s.Require().True(ok)
	s.Equal("servers.0.listen", path.String())
	s.Empty(c.Path())

	// And a later sibling conversion starts from a clean path
	err = c.Key("resolvers", func() error {
		return NewError(ErrMissingKey, Node{}, "x")
	})
	path, _ = PathOf(err)
	s.Equal("resolvers", path.String())
}

func (s *ContextTestSuite) TestQualifiedOnlyOnce() {
	c := NewContext()
	err := c.Key("a", func() error {
		return c.Key("b", func() error {
			return NewError(ErrOutOfRange, Node{}, "too big")
		})
	})
	s.Equal("a.b: out of range: too big", err.Error())
}

func (s *ContextTestSuite) TestRelativePathIsAppended() {
	// Given a duplicate key error produced below the current frame
	root := mustParse(&s.Suite, "tcp:\n  k: 1\n  k: 2\n")
	c := NewContext()

	err := c.Key("server", func() error {
		tcp, _, err := root.Get("tcp")
		if err != nil {
			return err
		}
		return c.Key("tcp", func() error {
			_, err := tcp.Entries()
			return err
		})
	})

	path, _ := PathOf(err)
	s.Equal("server.tcp.k", path.String())
}

func (s *ContextTestSuite) TestForeignErrorWrapped() {
	c := NewContext()
	cause := errors.New("boom")

	err := c.Key("k", func() error { return cause })

	s.ErrorIs(err, ErrInvalidValue)
	s.ErrorIs(err, cause)
	s.Equal("k: invalid value: boom", err.Error())
}

func (s *ContextTestSuite) TestForkIsIndependent() {
	c := NewContext(WithLookupDir("/etc/g3"))
	var forked *Context

	_ = c.Key("servers", func() error {
		forked = c.Fork()
		return nil
	})

	s.Empty(c.Path())
	s.Equal("servers", forked.Path().String())
	s.Equal("/etc/g3", forked.LookupDir())

	err := forked.Index(3, func() error { return NewError(ErrMissingKey, Node{}, "x") })
	path, _ := PathOf(err)
	s.Equal("servers.3", path.String())
	s.Empty(c.Path())
}

func (s *ContextTestSuite) TestWithFeaturesOnlyNarrows() {
	c := NewContext(WithFeatures(feature.Of(feature.GeoIP)))
	s.True(c.Features().Has(feature.GeoIP))
	s.False(c.Features().Has(feature.HTTP))

	// A capability missing from the build stays missing whatever is asked for
	c = NewContext(WithFeatures(feature.Of(feature.All()...)))
	s.Equal(feature.Linked(), c.Features())
}

func (s *ContextTestSuite) TestRequire() {
	c := NewContext(WithFeatures(feature.Of(feature.Regex)))

	s.NoError(c.Require(feature.Regex, Node{}))

	err := c.Require(feature.HTTP, Node{})
	s.ErrorIs(err, ErrUnsupportedFeature)
	s.Contains(err.Error(), "http is not linked")

	// Given a subset without the dependency of the requested feature
	c = NewContext(WithFeatures(feature.Of(feature.GeoIP)))
	err = c.Require(feature.ACLRule, Node{})
	s.ErrorIs(err, ErrUnsupportedFeature)
	s.Contains(err.Error(), "acl-rule requires regex")
}

func (s *ContextTestSuite) TestConvertQualifiesTopLevel() {
	root := mustParse(&s.Suite, "name: [x]\n")

	_, err := Convert(root, func(c *Context, v Node) (string, error) {
		var name string
		err := ForEachKV(c, v, func(k string, v Node) error {
			var err error
			switch k {
			case "name":
				name, err = AsNodeName(v)
			default:
				err = UnknownKey(k, v)
			}
			return err
		})
		return name, err
	})

	s.Require().ErrorIs(err, ErrTypeMismatch)
	s.Equal("name: type mismatch: expected scalar, got sequence (line 1, column 7)", err.Error())
}

func (s *ContextTestSuite) TestForEachValue() {
	c := NewContext()
	var got []string
	collect := func(v Node) error {
		t, err := AsString(v)
		got = append(got, t)
		return err
	}

	s.NoError(ForEachValue(c, mustParse(&s.Suite, "single"), collect))
	s.NoError(ForEachValue(c, mustParse(&s.Suite, "[a, b]"), collect))
	s.Equal([]string{"single", "a", "b"}, got)

	err := ForEachValue(c, mustParse(&s.Suite, "~"), collect)
	s.ErrorIs(err, ErrTypeMismatch)

	err = ForEachValue(c, mustParse(&s.Suite, "[a, [b]]"), collect)
	path, _ := PathOf(err)
	s.Equal("1", path.String())
}

func TestContextSuite(t *testing.T) {
	suite.Run(t, new(ContextTestSuite))
}
