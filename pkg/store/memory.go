package store

import (
	"context"
	"sync"
	"time"

	"github.com/playsync/sessiond/pkg/domain"
)

type memoryEntry struct {
	value    string
	count    int64
	deadline time.Time
}

// Memory is an in-process Store for local development and tests. It
// enforces the same per-key atomicity as the redis backend through a
// single mutex, and the same TTL semantics through per-entry deadlines.
// State is local to the process, so it does not coordinate replicas.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memoryEntry)}
}

// live returns the entry for key if it exists and has not expired,
// deleting it lazily otherwise. Callers must hold mu.
func (s *Memory) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if time.Now().After(e.deadline) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *Memory) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		s.entries[key] = &memoryEntry{count: 1, deadline: time.Now().Add(window)}
		return 1, window, nil
	}
	e.count++
	return e.count, time.Until(e.deadline), nil
}

func (s *Memory) CreateIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(key) != nil {
		return false, nil
	}
	s.entries[key] = &memoryEntry{value: value, deadline: time.Now().Add(ttl)}
	return true, nil
}

func (s *Memory) CompareAndSwap(_ context.Context, key, old, next string, ttl time.Duration) (CASResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return CASAbsent, nil
	}
	if e.value != old {
		return CASMismatch, nil
	}
	e.value = next
	e.deadline = time.Now().Add(ttl)
	return CASSwapped, nil
}

func (s *Memory) Touch(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return false, nil
	}
	e.deadline = time.Now().Add(ttl)
	return true, nil
}

func (s *Memory) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return "", domain.ErrNotFound
	}
	return e.value, nil
}
