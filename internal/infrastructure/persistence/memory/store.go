// Package memory implements the portal's cache store contract in process
// memory. Used by tests and as a fallback when no persistent backend is
// configured; nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = errors.New("memory store: key not found")

// Store is an in-process string KV store.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// Get returns the document stored under key, or ErrNotFound.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

// Set stores a document under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Contains reports whether a document exists under key.
func (s *Store) Contains(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}
