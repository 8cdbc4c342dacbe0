// Package sched converts the CPU affinity of worker threads.
//
// An affinity is a CPU count, a CPU list or a mapping naming either:
//
//	worker_affinity: 4
//	worker_affinity: [0, 2, 4-7]
//	worker_affinity: {cpu_set: "0-3"}
//
// CPU indices are checked against the host later, with Check, by the code
// that knows the machine topology.
package sched

import (
	"slices"
	"strconv"
	"strings"

	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// MaxCPU bounds CPU indices accepted in a configuration.
const MaxCPU = 1023

// Affinity is either a CPU count or an explicit sorted CPU set.
type Affinity struct {
	Count int
	CPUs  []int

	node yamlconf.Node
}

// IsSet reports whether the affinity lists explicit CPUs.
func (a Affinity) IsSet() bool { return len(a.CPUs) > 0 }

// Check verifies the affinity against a host with hostCPUs CPUs.
func (a Affinity) Check(hostCPUs int) error {
	if a.Count > hostCPUs {
		return yamlconf.NewError(yamlconf.ErrOutOfRange, a.node, "%d cpus requested, host has %d", a.Count, hostCPUs)
	}
	for _, cpu := range a.CPUs {
		if cpu >= hostCPUs {
			return yamlconf.NewError(yamlconf.ErrOutOfRange, a.node, "cpu %d does not exist, host has %d", cpu, hostCPUs)
		}
	}
	return nil
}

var _affinityKeys = yamlconf.NewAliases(
	[]string{"cpu_count", "count"},
	[]string{"cpu_set", "cpu_list", "cpus"},
)

// ParseAffinity converts a worker affinity. It needs the sched capability.
func ParseAffinity(c *yamlconf.Context, v yamlconf.Node) (Affinity, error) {
	if err := c.Require(feature.Sched, v); err != nil {
		return Affinity{}, err
	}

	a := Affinity{node: v}
	var err error
	switch {
	case v.Kind() == yamlconf.KindSequence, v.Kind() == yamlconf.KindScalar && strings.ContainsAny(v.Text(), "-,"):
		a.CPUs, err = parseCPUSet(c, v)
		if err != nil {
			return Affinity{}, err
		}
		return a, nil
	case v.Kind() == yamlconf.KindScalar:
		a.Count, err = asCount(v)
		if err != nil {
			return Affinity{}, err
		}
		return a, nil
	}

	err = _affinityKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "cpu_count":
			a.Count, err = asCount(v)
		case "cpu_set":
			a.CPUs, err = parseCPUSet(c, v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return Affinity{}, err
	}
	switch {
	case a.Count > 0 && a.IsSet():
		return Affinity{}, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "cpu_count and cpu_set are mutually exclusive")
	case a.Count == 0 && !a.IsSet():
		return Affinity{}, yamlconf.NewError(yamlconf.ErrMissingKey, v, "one of cpu_count or cpu_set is required")
	}
	return a, nil
}

func asCount(v yamlconf.Node) (int, error) {
	n, err := yamlconf.AsUsize(v)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > MaxCPU+1 {
		return 0, yamlconf.NewError(yamlconf.ErrOutOfRange, v, "cpu count must be in 1..%d", MaxCPU+1)
	}
	return n, nil
}

// parseCPUSet accepts a list whose items are CPU indices or "a-b" ranges,
// or a single scalar of comma separated items.
func parseCPUSet(c *yamlconf.Context, v yamlconf.Node) ([]int, error) {
	var out []int
	add := func(v yamlconf.Node, item string) error {
		lo, hi, err := parseRange(v, item)
		if err != nil {
			return err
		}
		for cpu := lo; cpu <= hi; cpu++ {
			if !slices.Contains(out, cpu) {
				out = append(out, cpu)
			}
		}
		return nil
	}

	err := yamlconf.ForEachValue(c, v, func(v yamlconf.Node) error {
		s, err := yamlconf.AsString(v)
		if err != nil {
			return err
		}
		for _, item := range strings.Split(s, ",") {
			if err := add(v, strings.TrimSpace(item)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "empty cpu set")
	}
	slices.Sort(out)
	return out, nil
}

func parseRange(v yamlconf.Node, item string) (int, int, error) {
	loStr, hiStr, isRange := strings.Cut(item, "-")
	lo, err := parseCPU(v, loStr)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := parseCPU(v, hiStr)
	if err != nil {
		return 0, 0, err
	}
	if hi < lo {
		return 0, 0, yamlconf.NewError(yamlconf.ErrInvalidValue, v, "cpu range %q is reversed", item)
	}
	return lo, hi, nil
}

func parseCPU(v yamlconf.Node, s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, yamlconf.NewError(yamlconf.ErrTypeMismatch, v, "expected cpu index, got %q", s)
	}
	if n > MaxCPU {
		return 0, yamlconf.NewError(yamlconf.ErrOutOfRange, v, "cpu %d is above %d", n, MaxCPU)
	}
	return n, nil
}
