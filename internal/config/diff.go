package config

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/H1Skaak/g3/internal/yamlconf"
)

// DiffAction is what a running server has to do when a reload replaces its
// configuration.
type DiffAction int

const (
	// NoAction keeps the server untouched.
	NoAction DiffAction = iota
	// ReloadNoRespawn hands the new config to the running listener.
	ReloadNoRespawn
	// ReloadAndRespawn rebinds the listening sockets.
	ReloadAndRespawn
	// SpawnNew replaces the server with a new one of another type.
	SpawnNew
)

func (a DiffAction) String() string {
	switch a {
	case NoAction:
		return "no_action"
	case ReloadNoRespawn:
		return "reload_no_respawn"
	case ReloadAndRespawn:
		return "reload_and_respawn"
	case SpawnNew:
		return "spawn_new"
	default:
		return "unknown"
	}
}

// Diff compares the server old is replaced with.
func (old *ServerConfig) Diff(next *ServerConfig) DiffAction {
	if old.Type != next.Type {
		return SpawnNew
	}
	if old.fingerprint == next.fingerprint {
		return NoAction
	}
	if old.Listen != next.Listen || old.ListenInWorker != next.ListenInWorker {
		return ReloadAndRespawn
	}
	return ReloadNoRespawn
}

// ServerDiff is the reload action of one named server.
type ServerDiff struct {
	Name   string
	Action DiffAction
}

// DiffServers returns the action of every server of next, in next's order,
// and the names of the servers of old that next no longer has. A server new
// in next is reported as SpawnNew.
func DiffServers(old, next *Config) (diffs []ServerDiff, removed []string) {
	var prev map[string]*ServerConfig
	if old != nil {
		prev = make(map[string]*ServerConfig, len(old.Servers))
		for _, s := range old.Servers {
			prev[s.Name] = s
		}
	}
	seen := make(map[string]struct{}, len(next.Servers))
	for _, s := range next.Servers {
		seen[s.Name] = struct{}{}
		action := SpawnNew
		if p, ok := prev[s.Name]; ok {
			action = p.Diff(s)
		}
		diffs = append(diffs, ServerDiff{Name: s.Name, Action: action})
	}
	if old != nil {
		for _, s := range old.Servers {
			if _, ok := seen[s.Name]; !ok {
				removed = append(removed, s.Name)
			}
		}
	}
	return diffs, removed
}

// fingerprint hashes the content of a document subtree and the key material
// loaded from it. Positions, the letter case of keys and mapping order do not
// change it; sequence order does.
func fingerprint(v yamlconf.Node, material [][]byte) uint64 {
	d := xxhash.New()
	writeNode(d, v)
	for _, m := range material {
		_, _ = d.WriteString(strconv.Itoa(len(m)))
		_, _ = d.Write(m)
	}
	return d.Sum64()
}

func writeNode(d *xxhash.Digest, v yamlconf.Node) {
	_, _ = d.WriteString(v.Kind().String())
	switch v.Kind() {
	case yamlconf.KindScalar:
		_, _ = d.WriteString(strconv.Quote(v.Text()))
	case yamlconf.KindSequence:
		items, _ := v.Items()
		_, _ = d.WriteString(strconv.Itoa(len(items)))
		for _, item := range items {
			writeNode(d, item)
		}
	case yamlconf.KindMapping:
		entries, _ := v.Entries()
		slices.SortFunc(entries, func(a, b yamlconf.Entry) int { return cmp.Compare(a.Key, b.Key) })
		_, _ = d.WriteString(strconv.Itoa(len(entries)))
		for _, e := range entries {
			_, _ = d.WriteString(strconv.Quote(e.Key))
			writeNode(d, e.Value)
		}
	}
}
