// Package buildinfo identifies a g3 build: the version and commit set at
// link time and the capabilities selected by build tags.
package buildinfo

import (
	"fmt"
	"runtime"

	"github.com/H1Skaak/g3/internal/feature"
)

// Version is set at link-time with -ldflags.
var Version = "v0.1.0"

// Commit is set at link-time with -ldflags.
// Default is "unknown" so tests and "go run ." still work.
var Commit = "unknown"

// Features returns the capabilities linked into this binary.
func Features() feature.Set { return feature.Linked() }

// String renders a one line build summary.
func String() string {
	return fmt.Sprintf("%s (commit %s, %s, features: %s)", Version, Commit, runtime.Version(), Features())
}
