// Package memory provides an in-memory SnapshotStore, suitable for tests
// and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/parleyhq/parley/pkg/domain"
)

// Store implements ports.SnapshotStore in process memory.
type Store struct {
	mu    sync.RWMutex
	snaps map[string]*domain.Snapshot
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{snaps: make(map[string]*domain.Snapshot)}
}

// Save stores a deep copy of the snapshot.
func (s *Store) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[sessionID] = snap.Clone()
	return nil
}

// Load returns a deep copy of the stored snapshot.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return snap.Clone(), nil
}

// Delete removes the stored snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sessionID)
	return nil
}

// List returns the stored session IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
