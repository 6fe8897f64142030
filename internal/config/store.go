package config

import (
	"fmt"
	"sync"
)

// Store holds the active configuration. Readers get copies; writers replace
// the whole tree and bump the version so pollers notice.
type Store struct {
	mu      sync.RWMutex
	cfg     Config
	version uint64
}

// NewStore validates cfg and makes it the active configuration.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{cfg: cfg.Clone(), version: 1}, nil
}

// Get returns a copy of the active configuration and its version.
func (s *Store) Get() (Config, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone(), s.version
}

// Version is incremented on every accepted change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Update applies fn to a copy and installs it if it validates. A rejected
// update leaves the store untouched. An update that changes nothing does not
// bump the version.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg.Clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("update rejected: %w", err)
	}
	if len(Changed(&s.cfg, &next)) == 0 {
		return nil
	}
	s.cfg = next
	s.version++
	return nil
}

// Set replaces the configuration wholesale.
func (s *Store) Set(cfg Config) error {
	return s.Update(func(c *Config) { *c = cfg.Clone() })
}
