// Package acl converts ordered access control rule sets.
//
// A rule set is written as a mapping with an optional default action:
//
//	dst_host_filter:
//	  default: forbid
//	  rules:
//	    - {action: permit, suffix: example.net}
//	    - {action: forbid_log, regex: '^ads\.'}
//	    - {action: permit, network: 10.0.0.0/8}
//
// or as a bare list of rules. Rules keep the order they are written in and
// the first matching rule decides. Whether a missing default permits or
// forbids is up to the consumer.
package acl

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/netconf"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// Action is the outcome of a matching rule.
type Action uint8

const (
	Permit Action = iota + 1
	PermitLog
	Forbid
	ForbidLog
)

func (a Action) String() string {
	switch a {
	case Permit:
		return "permit"
	case PermitLog:
		return "permit_log"
	case Forbid:
		return "forbid"
	case ForbidLog:
		return "forbid_log"
	default:
		return "unset"
	}
}

// Forbidden reports whether the action rejects the request.
func (a Action) Forbidden() bool { return a == Forbid || a == ForbidLog }

// Logged reports whether a match is to be logged.
func (a Action) Logged() bool { return a == PermitLog || a == ForbidLog }

// MatcherKind tells which field of a Rule is set.
type MatcherKind uint8

const (
	MatchNetwork MatcherKind = iota + 1
	MatchRegex
	MatchSuffix
)

// Rule is one rule of a set. Exactly one matcher field is set, as told by
// Kind.
type Rule struct {
	Action  Action
	Kind    MatcherKind
	Network netip.Prefix
	Regex   *regexp.Regexp
	Suffix  string
}

// Matches reports whether target is matched by the rule. Network rules only
// match IP targets; suffix rules match the domain or any of its
// subdomains.
func (r Rule) Matches(target string) bool {
	switch r.Kind {
	case MatchNetwork:
		addr, err := netip.ParseAddr(strings.Trim(target, "[]"))
		return err == nil && r.Network.Contains(addr.Unmap())
	case MatchRegex:
		return r.Regex.MatchString(target)
	case MatchSuffix:
		host := strings.ToLower(strings.TrimSuffix(target, "."))
		return host == r.Suffix || strings.HasSuffix(host, "."+r.Suffix)
	default:
		return false
	}
}

// RuleSet is an ordered list of rules plus an optional default action.
type RuleSet struct {
	// Default is zero when no default was configured.
	Default Action
	Rules   []Rule
}

// HasDefault reports whether a default action was configured.
func (s RuleSet) HasDefault() bool { return s.Default != 0 }

// Match returns the first rule matching target.
func (s RuleSet) Match(target string) (Rule, bool) {
	for _, r := range s.Rules {
		if r.Matches(target) {
			return r, true
		}
	}
	return Rule{}, false
}

// Decide returns the action of the first matching rule, the default action
// when none matches, or fallback when there is no default.
func (s RuleSet) Decide(target string, fallback Action) Action {
	if r, ok := s.Match(target); ok {
		return r.Action
	}
	if s.HasDefault() {
		return s.Default
	}
	return fallback
}

// ParseRuleSet converts a rule set. It needs the acl-rule capability.
func ParseRuleSet(c *yamlconf.Context, v yamlconf.Node) (RuleSet, error) {
	return parseRuleSet(c, v, allMatchers)
}

// ParseNetworkFilter converts a rule set that may only hold network rules,
// as used for ingress filtering on client addresses.
func ParseNetworkFilter(c *yamlconf.Context, v yamlconf.Node) (RuleSet, error) {
	return parseRuleSet(c, v, networkOnly)
}

type matcherSet uint8

const (
	allMatchers matcherSet = iota
	networkOnly
)

var _ruleSetKeys = yamlconf.NewAliases(
	[]string{"default", "missed_action", "default_action"},
	[]string{"rules", "rule"},
)

func parseRuleSet(c *yamlconf.Context, v yamlconf.Node, allowed matcherSet) (RuleSet, error) {
	if err := c.Require(feature.ACLRule, v); err != nil {
		return RuleSet{}, err
	}

	var set RuleSet
	if v.Kind() == yamlconf.KindSequence {
		rules, err := parseRules(c, v, allowed)
		if err != nil {
			return RuleSet{}, err
		}
		set.Rules = rules
		return set, nil
	}

	err := _ruleSetKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "default":
			set.Default, err = asAction(v)
		case "rules":
			set.Rules, err = parseRules(c, v, allowed)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return RuleSet{}, err
	}
	return set, nil
}

func parseRules(c *yamlconf.Context, v yamlconf.Node, allowed matcherSet) ([]Rule, error) {
	var rules []Rule
	err := yamlconf.ForEachItem(c, v, func(_ int, v yamlconf.Node) error {
		r, err := parseRule(c, v, allowed)
		if err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

var _ruleKeys = yamlconf.NewAliases(
	[]string{"network", "net", "subnet"},
	[]string{"regex", "regexp"},
	[]string{"suffix", "child", "domain_suffix"},
)

func parseRule(c *yamlconf.Context, v yamlconf.Node, allowed matcherSet) (Rule, error) {
	var r Rule
	setKind := func(k string, v yamlconf.Node, kind MatcherKind) error {
		if r.Kind != 0 {
			return yamlconf.NewError(yamlconf.ErrInvalidValue, v, "%s: a rule takes exactly one matcher", k)
		}
		if allowed == networkOnly && kind != MatchNetwork {
			return yamlconf.NewError(yamlconf.ErrInvalidValue, v, "only network rules are allowed here")
		}
		r.Kind = kind
		return nil
	}

	err := _ruleKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "action":
			r.Action, err = asAction(v)
		case "network":
			if err = setKind(k, v, MatchNetwork); err == nil {
				r.Network, err = netconf.AsPrefix(v)
			}
		case "regex":
			if err = setKind(k, v, MatchRegex); err == nil {
				r.Regex, err = yamlconf.AsRegexp(c, v)
			}
		case "suffix":
			if err = setKind(k, v, MatchSuffix); err == nil {
				r.Suffix, err = asSuffix(v)
			}
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return Rule{}, err
	}
	if r.Action == 0 {
		return Rule{}, yamlconf.MissingKey(v, "action")
	}
	if r.Kind == 0 {
		return Rule{}, yamlconf.NewError(yamlconf.ErrMissingKey, v, "one of network, regex or suffix is required")
	}
	return r, nil
}

func asSuffix(v yamlconf.Node) (string, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return "", err
	}
	return yamlconf.ParseDomain(v, strings.TrimPrefix(strings.TrimSpace(s), "."))
}

func asAction(v yamlconf.Node) (Action, error) {
	s, err := yamlconf.AsString(v)
	if err != nil {
		return 0, err
	}
	switch yamlconf.NormalizeKey(s) {
	case "permit", "allow", "accept":
		return Permit, nil
	case "permit_log", "allow_log", "accept_log":
		return PermitLog, nil
	case "forbid", "deny", "reject":
		return Forbid, nil
	case "forbid_log", "deny_log", "reject_log":
		return ForbidLog, nil
	default:
		return 0, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "unknown acl action %q", s)
	}
}
