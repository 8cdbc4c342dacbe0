package yamlconf

import (
	"net/url"
	"slices"
	"strings"
)

// AsURL parses an absolute URL. When schemes are given, the URL scheme must
// be one of them and the URL must name a host.
func AsURL(v Node, schemes ...string) (*url.URL, error) {
	s, err := scalar(v)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, WrapError(ErrInvalidURL, v, err)
	}
	if u.Scheme == "" {
		return nil, NewError(ErrInvalidURL, v, "%q has no scheme", s)
	}
	if len(schemes) == 0 {
		return u, nil
	}
	if !slices.Contains(schemes, strings.ToLower(u.Scheme)) {
		return nil, NewError(ErrInvalidURL, v, "scheme %q is not one of %s", u.Scheme, strings.Join(schemes, ", "))
	}
	if u.Hostname() == "" {
		return nil, NewError(ErrInvalidURL, v, "%q has no host", s)
	}
	return u, nil
}
