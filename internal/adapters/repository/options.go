package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGroupIDs sets the group id generator.
func WithGroupIDs(next func() string) Option {
	return func(s *MemoryStore) {
		if next != nil {
			s.newGroupID = next
		}
	}
}
