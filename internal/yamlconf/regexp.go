package yamlconf

import (
	"regexp"

	"github.com/H1Skaak/g3/internal/feature"
)

// AsRegexp compiles a regular expression. It is the only scalar converter
// that needs the Context: regex support is a build capability.
func AsRegexp(c *Context, v Node) (*regexp.Regexp, error) {
	if err := c.Require(feature.Regex, v); err != nil {
		return nil, err
	}
	s, err := scalar(v)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, WrapError(ErrInvalidRegex, v, err)
	}
	return re, nil
}
