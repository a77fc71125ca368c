// Package memstore keeps baselines in memory. It is meant for tests and for
// dry runs that must not touch committed baselines.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/vrt/store"
)

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an empty store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// ReadFile implements store.Store.
func (s *Store) ReadFile(_ context.Context, key string) ([]byte, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, store.NotFound(key)
	}
	return slices.Clone(data), nil
}

// WriteFile implements store.Store.
func (s *Store) WriteFile(_ context.Context, key string, data []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[key] = slices.Clone(data)
	s.mu.Unlock()
	return nil
}

// List implements store.Lister.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Delete implements store.Deleter.
func (s *Store) Delete(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			delete(s.blobs, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
