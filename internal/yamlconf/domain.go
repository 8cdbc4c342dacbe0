package yamlconf

import (
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

const (
	_maxLabelLen  = 63
	_maxDomainLen = 253
)

// AsDomain returns the ASCII (punycode) form of a domain name. Unicode names
// are mapped through the IDNA lookup profile; the result is lower case with
// any trailing dot removed.
func AsDomain(v Node) (string, error) {
	s, err := scalar(v)
	if err != nil {
		return "", err
	}
	return ParseDomain(v, s)
}

// ParseDomain validates s as a domain name, reporting failures at v. It is
// used where the domain is only part of a scalar, like "host:port".
func ParseDomain(v Node, s string) (string, error) {
	name := strings.TrimSuffix(strings.TrimSpace(s), ".")
	if name == "" {
		return "", NewError(ErrInvalidDomainName, v, "empty name")
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" {
			return "", NewError(ErrInvalidDomainName, v, "empty label in %q", s)
		}
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", WrapError(ErrInvalidDomainName, v, err)
	}
	ascii = strings.ToLower(ascii)
	if len(ascii) > _maxDomainLen {
		return "", NewError(ErrInvalidDomainName, v, "%q is longer than %d bytes", s, _maxDomainLen)
	}
	for _, label := range strings.Split(ascii, ".") {
		if len(label) > _maxLabelLen {
			return "", NewError(ErrInvalidDomainName, v, "label %q is longer than %d bytes", label, _maxLabelLen)
		}
	}
	if _, ok := dns.IsDomainName(ascii); !ok {
		return "", NewError(ErrInvalidDomainName, v, "%q", s)
	}
	return ascii, nil
}
