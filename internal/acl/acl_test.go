package acl

import (
	"net/netip"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

var ruleCmp = cmp.Options{
	cmp.Comparer(func(a, b netip.Prefix) bool { return a == b }),
	cmp.Comparer(func(a, b *regexp.Regexp) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.String() == b.String()
	}),
}

type ACLTestSuite struct {
	suite.Suite
}

func (s *ACLTestSuite) convert(doc string, opts ...yamlconf.Option) (RuleSet, error) {
	n, err := yamlconf.Parse([]byte(doc))
	s.Require().NoError(err)
	return yamlconf.Convert(n, ParseRuleSet, opts...)
}

const _orderedDoc = `
default: forbid
rules:
  - {action: permit, network: 10.0.0.0/8}
  - {action: forbid_log, network: 10.1.0.0/16}
  - {action: permit_log, suffix: .Example.NET}
  - {action: forbid, regex: '^ads\.'}
`

func (s *ACLTestSuite) TestOrderIsPreserved() {
	set, err := s.convert(_orderedDoc)
	s.Require().NoError(err)

	expected := []Rule{
		{Action: Permit, Kind: MatchNetwork, Network: netip.MustParsePrefix("10.0.0.0/8")},
		{Action: ForbidLog, Kind: MatchNetwork, Network: netip.MustParsePrefix("10.1.0.0/16")},
		{Action: PermitLog, Kind: MatchSuffix, Suffix: "example.net"},
		{Action: Forbid, Kind: MatchRegex, Regex: regexp.MustCompile(`^ads\.`)},
	}
	s.Empty(cmp.Diff(expected, set.Rules, ruleCmp))
	s.Equal(Forbid, set.Default)

	// Converting the same document again yields the same rule order
	again, err := s.convert(_orderedDoc)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(set, again, ruleCmp))
}

func (s *ACLTestSuite) TestFirstMatchWins() {
	set, err := s.convert(_orderedDoc)
	s.Require().NoError(err)

	testCases := []struct {
		target   string
		expected Action
		matched  bool
	}{
		{target: "10.1.2.3", expected: Permit, matched: true},
		{target: "www.example.net", expected: PermitLog, matched: true},
		{target: "example.net", expected: PermitLog, matched: true},
		{target: "badexample.net", expected: Forbid, matched: false},
		{target: "ads.tracker.io", expected: Forbid, matched: true},
		{target: "192.168.1.1", expected: Forbid, matched: false},
	}

	for _, tc := range testCases {
		s.Run(tc.target, func() {
			_, matched := set.Match(tc.target)
			s.Equal(tc.matched, matched)
			s.Equal(tc.expected, set.Decide(tc.target, Permit))
		})
	}
}

func (s *ACLTestSuite) TestBareSequenceWithoutDefault() {
	set, err := s.convert("- {action: deny, net: '2001:db8::/32'}\n")
	s.Require().NoError(err)
	s.False(set.HasDefault())
	s.Len(set.Rules, 1)
	s.Equal(PermitLog, set.Decide("192.0.2.1", PermitLog))
	s.Equal(Forbid, set.Decide("2001:db8::5", Permit))
}

func (s *ACLTestSuite) TestErrors() {
	testCases := []struct {
		name     string
		doc      string
		wantErr  error
		wantPath string
	}{
		{name: "two matchers", doc: "- {action: permit, network: 10.0.0.0/8, suffix: a.example}", wantErr: yamlconf.ErrInvalidValue, wantPath: "0.suffix"},
		{name: "network spelled twice", doc: "- {action: permit, network: 10.0.0.0/8, net: 10.0.0.0/16}", wantErr: yamlconf.ErrDuplicateKey, wantPath: "0.net"},
		{name: "no matcher", doc: "- {action: permit}", wantErr: yamlconf.ErrMissingKey, wantPath: "0"},
		{name: "no action", doc: "rules: [{network: 10.0.0.0/8}]", wantErr: yamlconf.ErrMissingKey, wantPath: "rules.0"},
		{name: "bad action", doc: "default: maybe", wantErr: yamlconf.ErrInvalidValue, wantPath: "default"},
		{name: "bad regex", doc: "- {action: permit, regex: '(['}", wantErr: yamlconf.ErrInvalidRegex, wantPath: "0.regex"},
		{name: "bad suffix", doc: "- {action: permit, suffix: 'a..b'}", wantErr: yamlconf.ErrInvalidDomainName, wantPath: "0.suffix"},
		{name: "unknown key", doc: "- {action: permit, network: 10.0.0.0/8, port: 80}", wantErr: yamlconf.ErrUnknownKey, wantPath: "0.port"},
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

func (s *ACLTestSuite) TestNetworkFilterRejectsHostRules() {
	n, err := yamlconf.Parse([]byte("- {action: permit, suffix: example.net}\n"))
	s.Require().NoError(err)

	_, err = yamlconf.Convert(n, ParseNetworkFilter)
	s.ErrorIs(err, yamlconf.ErrInvalidValue)
}

func (s *ACLTestSuite) TestNeedsCapability() {
	// Given a build view where the regex engine is missing
	opts := yamlconf.WithFeatures(feature.Of(feature.ACLRule, feature.GeoIP))

	// Then acl-rule is dropped with it and the rule set is unsupported
	_, err := s.convert("- {action: permit, network: 10.0.0.0/8}", opts)
	s.ErrorIs(err, yamlconf.ErrUnsupportedFeature)
}

func TestACLSuite(t *testing.T) {
	suite.Run(t, new(ACLTestSuite))
}
