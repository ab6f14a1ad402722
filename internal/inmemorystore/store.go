package inmemorystore

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vk/jobchain/internal/statestore"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means never
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is an in-memory implementation of statestore.Store.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a new, empty in-memory state store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ statestore.Store = (*Store)(nil)

// load returns the live entry under key. Callers must hold mu.
func (s *Store) load(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) store(key string, value []byte, ttl time.Duration) {
	e := entry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.load(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

// Put stores value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(key, value, ttl)
	return nil
}

// Has reports whether a live entry exists under key.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.load(key)
	return ok, nil
}

// CompareAndSet swaps the entry under key when it matches expected.
func (s *Store) CompareAndSet(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.load(key)
	switch {
	case expected == nil && ok:
		return false, nil
	case expected != nil && (!ok || !bytes.Equal(current.value, expected)):
		return false, nil
	}
	s.store(key, value, ttl)
	return true, nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
