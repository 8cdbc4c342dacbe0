// Package route converts the route tables of route-select escapers: a
// target host is mapped to the name of the next escaper.
//
//	default_next: direct
//	exact_match:
//	  - {next: intranet, hosts: [git.corp.example, 10.0.0.10]}
//	child_match:
//	  - {next: proxy-eu, domains: [eu.example]}
//	subnet_match:
//	  - {next: intranet, subnets: [10.0.0.0/8]}
//	regex_match:
//	  - {next: blackhole, rules: ['^ads\.']}
package route

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/netconf"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// SubnetRoute sends addresses in Prefix to Next.
type SubnetRoute struct {
	Prefix netip.Prefix
	Next   string
}

// ChildRoute sends Domain and its subdomains to Next.
type ChildRoute struct {
	Domain string
	Next   string
}

// RegexRoute sends hosts matching Regex to Next.
type RegexRoute struct {
	Regex *regexp.Regexp
	Next  string
}

// Table is a converted route table.
type Table struct {
	DefaultNext string
	// Exact maps a host, domain or IP text, to its next escaper.
	Exact  map[string]string
	Child  []ChildRoute
	Subnet []SubnetRoute
	Regex  []RegexRoute
}

// Select returns the next escaper for host. Exact matches come first, then
// subnets for IP hosts, then the longest matching parent domain, then
// regular expressions in order, and finally the default.
func (t Table) Select(host string) string {
	host = strings.ToLower(strings.TrimSuffix(strings.Trim(host, "[]"), "."))
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if next, ok := t.Exact[addr.String()]; ok {
			return next
		}
		for _, r := range t.Subnet {
			if r.Prefix.Contains(addr) {
				return r.Next
			}
		}
		return t.DefaultNext
	}

	if next, ok := t.Exact[host]; ok {
		return next
	}
	var (
		best    string
		bestLen = -1
	)
	for _, r := range t.Child {
		if (host == r.Domain || strings.HasSuffix(host, "."+r.Domain)) && len(r.Domain) > bestLen {
			best, bestLen = r.Next, len(r.Domain)
		}
	}
	if bestLen >= 0 {
		return best
	}
	for _, r := range t.Regex {
		if r.Regex.MatchString(host) {
			return r.Next
		}
	}
	return t.DefaultNext
}

// Nexts returns every escaper name the table refers to, default first.
func (t Table) Nexts() []string {
	seen := map[string]struct{}{t.DefaultNext: {}}
	out := []string{t.DefaultNext}
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, r := range t.Child {
		add(r.Next)
	}
	for _, r := range t.Subnet {
		add(r.Next)
	}
	for _, r := range t.Regex {
		add(r.Next)
	}
	for _, n := range t.Exact {
		add(n)
	}
	return out
}

var _tableKeys = yamlconf.NewAliases(
	[]string{"default_next", "default"},
)

// ParseTable converts a route table mapping. It needs the route
// capability.
func ParseTable(c *yamlconf.Context, v yamlconf.Node) (Table, error) {
	if err := c.Require(feature.Route, v); err != nil {
		return Table{}, err
	}

	t := Table{Exact: map[string]string{}}
	err := _tableKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		switch k {
		case "default_next":
			var err error
			t.DefaultNext, err = yamlconf.AsNodeName(v)
			return err
		case "exact_match":
			return forEachRoute(c, v, []string{"hosts", "host"}, func(next string, v yamlconf.Node) error {
				h, err := netconf.AsHost(v)
				if err != nil {
					return err
				}
				key := h.String()
				if prev, dup := t.Exact[key]; dup {
					return yamlconf.NewError(yamlconf.ErrInvalidValue, v, "host %s is already routed to %s", key, prev)
				}
				t.Exact[key] = next
				return nil
			})
		case "child_match":
			return forEachRoute(c, v, []string{"domains", "domain"}, func(next string, v yamlconf.Node) error {
				s, err := yamlconf.AsString(v)
				if err != nil {
					return err
				}
				d, err := yamlconf.ParseDomain(v, strings.TrimPrefix(strings.TrimSpace(s), "."))
				t.Child = append(t.Child, ChildRoute{Domain: d, Next: next})
				return err
			})
		case "subnet_match":
			return forEachRoute(c, v, []string{"subnets", "subnet", "networks", "network"}, func(next string, v yamlconf.Node) error {
				p, err := netconf.AsPrefix(v)
				t.Subnet = append(t.Subnet, SubnetRoute{Prefix: p, Next: next})
				return err
			})
		case "regex_match":
			return forEachRoute(c, v, []string{"rules", "regex"}, func(next string, v yamlconf.Node) error {
				re, err := yamlconf.AsRegexp(c, v)
				t.Regex = append(t.Regex, RegexRoute{Regex: re, Next: next})
				return err
			})
		default:
			return yamlconf.UnknownKey(k, v)
		}
	})
	if err != nil {
		return Table{}, err
	}
	if t.DefaultNext == "" {
		return Table{}, yamlconf.MissingKey(v, "default_next")
	}
	return t, nil
}

// forEachRoute walks a list of {next, <valuesKey>} entries and calls fn for
// every value with the entry's next escaper.
func forEachRoute(c *yamlconf.Context, v yamlconf.Node, valuesKeys []string, fn func(next string, v yamlconf.Node) error) error {
	return yamlconf.ForEachItem(c, v, func(_ int, entry yamlconf.Node) error {
		var (
			next      string
			values    yamlconf.Node
			valuesKey string
		)
		err := yamlconf.NewAliases(valuesKeys).ForEachKV(c, entry, func(k string, v yamlconf.Node) error {
			if k == "next" {
				var err error
				next, err = yamlconf.AsNodeName(v)
				return err
			}
			if k == valuesKeys[0] {
				values, valuesKey = v, c.LastKey()
				return nil
			}
			return yamlconf.UnknownKey(k, v)
		})
		if err != nil {
			return err
		}
		if next == "" {
			return yamlconf.MissingKey(entry, "next")
		}
		if valuesKey == "" {
			return yamlconf.MissingKey(entry, valuesKeys[0])
		}
		return c.Key(valuesKey, func() error {
			return yamlconf.ForEachValue(c, values, func(v yamlconf.Node) error { return fn(next, v) })
		})
	})
}
