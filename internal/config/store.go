package config

import "go.uber.org/atomic"

// Store holds the current configuration snapshot. Readers never block and
// always see a whole generation.
type Store struct {
	current *atomic.Pointer[Config]
}

// NewStore returns a Store holding cfg, which may be nil.
func NewStore(cfg *Config) *Store {
	return &Store{current: atomic.NewPointer(cfg)}
}

// Load returns the current snapshot.
func (s *Store) Load() *Config { return s.current.Load() }

// Swap installs cfg and returns the snapshot it replaces.
func (s *Store) Swap(cfg *Config) *Config { return s.current.Swap(cfg) }
