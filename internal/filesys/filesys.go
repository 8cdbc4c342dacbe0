// Package filesys provides the file system surface used while loading
// configuration. It defines a small read-only interface plus an
// implementation that delegates to the standard library, so loaders and
// certificate readers can be tested against an in-memory file system.
package filesys

import (
	"os"
	"path/filepath"
)

// ReadFS is the tiny surface the configuration loaders need.
// Conversion only ever reads: the main document and the key material
// it references.
type ReadFS interface {
	ReadFile(string) ([]byte, error)
}

// OS returns a file system implementation that delegates to the standard library.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements ReadFS against the local disk.
type OsFS struct{}

func (OsFS) ReadFile(p string) ([]byte, error) { return os.ReadFile(p) }

var _ ReadFS = OsFS{}

// Resolve returns p unchanged if it is absolute, otherwise p joined onto
// lookupDir. An empty lookupDir leaves relative paths relative to the
// working directory.
func Resolve(lookupDir, p string) string {
	if filepath.IsAbs(p) || lookupDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(lookupDir, p)
}
