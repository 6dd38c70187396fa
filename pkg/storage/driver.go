// Package storage defines the entry store consumed by the memory pipeline,
// the proxy health check, and the management API.
package storage

import (
	"context"

	"github.com/papercomputeco/recall/pkg/entry"
)

// Driver is the durable record store for context entries.
// Implementations must be safe for concurrent use: learning cycles from
// distinct requests may write concurrently.
type Driver interface {
	// Create persists a new entry. The entry must carry an id.
	Create(ctx context.Context, e *entry.Entry) error

	// Get retrieves an entry by id. Returns NotFoundError if absent.
	Get(ctx context.Context, id string) (*entry.Entry, error)

	// Update replaces the mutable fields of an existing entry.
	// Returns NotFoundError if absent.
	Update(ctx context.Context, e *entry.Entry) error

	// Delete removes an entry by id. Returns NotFoundError if absent.
	Delete(ctx context.Context, id string) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*entry.Entry, error)

	// Search returns entries whose content contains query, case-insensitive,
	// newest first.
	Search(ctx context.Context, query string, limit int) ([]*entry.Entry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases any resources.
	Close() error
}

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	Source   *entry.Source
	Type     *entry.Type
	Category *entry.Category

	// Limit caps the number of results. Zero means no limit.
	Limit  int
	Offset int
}

// Matches reports whether e passes the filter's field predicates.
// Limit and Offset are not considered.
func (f Filter) Matches(e *entry.Entry) bool {
	if f.Source != nil && e.Source != *f.Source {
		return false
	}
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	return true
}
