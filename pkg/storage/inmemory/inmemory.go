// Package inmemory provides a map-backed storage.Driver for tests and
// ephemeral proxies.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of entries
	mu sync.RWMutex

	// entries is the in memory map of entries keyed by entry id
	entries map[string]*entry.Entry
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		entries: make(map[string]*entry.Entry),
	}
}

// Create stores a copy of e. Creating an id that already exists is an error.
func (s *Driver) Create(_ context.Context, e *entry.Entry) error {
	if e == nil {
		return errors.New("cannot store nil entry")
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("entry %s already exists", e.ID)
	}

	s.entries[e.ID] = e.Clone()
	return nil
}

// Get retrieves an entry by id.
func (s *Driver) Get(_ context.Context, id string) (*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return e.Clone(), nil
}

// Update replaces an existing entry. CreatedAt is preserved from the stored row.
func (s *Driver) Update(_ context.Context, e *entry.Entry) error {
	if e == nil {
		return errors.New("cannot update nil entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[e.ID]
	if !ok {
		return storage.NotFoundError{ID: e.ID}
	}

	updated := e.Clone()
	updated.CreatedAt = existing.CreatedAt
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		updated.UpdatedAt = updated.CreatedAt
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	s.entries[e.ID] = updated
	return nil
}

// Delete removes an entry by id.
func (s *Driver) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return storage.NotFoundError{ID: id}
	}

	delete(s.entries, id)
	return nil
}

// List returns entries matching filter, newest first.
func (s *Driver) List(_ context.Context, filter storage.Filter) ([]*entry.Entry, error) {
	s.mu.RLock()
	result := make([]*entry.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Matches(e) {
			result = append(result, e.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(result)
	return page(result, filter.Offset, filter.Limit), nil
}

// Search returns entries whose content contains query, case-insensitive.
func (s *Driver) Search(_ context.Context, query string, limit int) ([]*entry.Entry, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	var result []*entry.Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Content), needle) {
			result = append(result, e.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(result)
	return page(result, 0, limit), nil
}

// Count returns the number of entries in the in-memory store.
func (s *Driver) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Ping always succeeds for the in-memory store.
func (s *Driver) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}

func sortNewestFirst(entries []*entry.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func page(entries []*entry.Entry, offset, limit int) []*entry.Entry {
	if offset > 0 {
		if offset >= len(entries) {
			return []*entry.Entry{}
		}
		entries = entries[offset:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
