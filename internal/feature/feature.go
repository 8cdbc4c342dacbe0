// Package feature holds the set of optional subsystems linked into the
// current binary.
//
// Every capability is chosen at build time. Capabilities are enabled by
// default and removed with a `g3_no_<name>` build tag, except openssl which
// needs cgo and is only linked with the `g3_openssl` tag:
//
//	go build -tags g3_no_geoip,g3_no_dpi ./cmd/g3conf
//	go build -tags g3_openssl ./cmd/g3conf
//
// The registry is sealed once package initialization finishes. Builders that
// depend on a capability check it with Set.Has before reading any key, so a
// binary built without a subsystem rejects its configuration instead of
// ignoring it.
package feature

import (
	"strings"
	"sync"
)

// Feature is one optional capability.
type Feature uint16

const (
	Regex Feature = 1 << iota
	ACLRule
	DPI
	GeoIP
	Histogram
	HTTP
	OpenSSL
	Rustls
	Quinn
	Route
	Sched
	Resolve
)

var _names = [...]struct {
	f    Feature
	name string
}{
	{Regex, "regex"},
	{ACLRule, "acl-rule"},
	{DPI, "dpi"},
	{GeoIP, "geoip"},
	{Histogram, "histogram"},
	{HTTP, "http"},
	{OpenSSL, "openssl"},
	{Rustls, "rustls"},
	{Quinn, "quinn"},
	{Route, "route"},
	{Sched, "sched"},
	{Resolve, "resolve"},
}

// _requires lists the capabilities another capability cannot work without.
var _requires = map[Feature]Feature{
	ACLRule: Regex,
	DPI:     ACLRule,
}

// All returns every known capability in declaration order.
func All() []Feature {
	all := make([]Feature, 0, len(_names))
	for _, n := range _names {
		all = append(all, n.f)
	}
	return all
}

// Parse returns the capability with the given name.
func Parse(name string) (Feature, bool) {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for _, n := range _names {
		if n.name == name {
			return n.f, true
		}
	}
	return 0, false
}

func (f Feature) String() string {
	for _, n := range _names {
		if n.f == f {
			return n.name
		}
	}
	return "unknown"
}

// Requires returns the capabilities f depends on, or 0.
func (f Feature) Requires() Feature { return _requires[f] }

// Set is an immutable set of capabilities. A Set never contains a capability
// whose requirements are missing.
type Set struct {
	bits Feature
}

// Of returns the set holding fs, minus any capability whose requirements
// are not also present.
func Of(fs ...Feature) Set {
	var bits Feature
	for _, f := range fs {
		bits |= f
	}
	return Set{bits: bits}.closed()
}

// Has reports whether f is in the set.
func (s Set) Has(f Feature) bool { return f != 0 && s.bits&f == f }

// Intersect returns the capabilities present in both sets.
func (s Set) Intersect(o Set) Set { return Set{bits: s.bits & o.bits}.closed() }

// List returns the members in declaration order.
func (s Set) List() []Feature {
	var out []Feature
	for _, n := range _names {
		if s.Has(n.f) {
			out = append(out, n.f)
		}
	}
	return out
}

func (s Set) String() string {
	parts := make([]string, 0, len(_names))
	for _, f := range s.List() {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, ",")
}

// closed drops capabilities until every remaining one has its requirements.
func (s Set) closed() Set {
	for {
		changed := false
		for f, req := range _requires {
			if s.bits&f != 0 && s.bits&req != req {
				s.bits &^= f
				changed = true
			}
		}
		if !changed {
			return s
		}
	}
}

// _linked collects capabilities during package init only.
var _linked Feature

func link(f Feature) { _linked |= f }

var (
	_linkedOnce sync.Once
	_linkedSet  Set
)

// Linked returns the capabilities built into this binary.
func Linked() Set {
	_linkedOnce.Do(func() {
		_linkedSet = Set{bits: _linked}.closed()
	})
	return _linkedSet
}
