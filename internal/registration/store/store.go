// Package store persists canonical registrants. Stores are pure I/O; dense
// renumbering and merge rules belong to the service and sync layers.
package store

import (
	"context"
	"errors"

	"eventdesk/internal/registration"
)

// ErrNotFound is returned when a registrant does not exist in the owner's
// collection.
var ErrNotFound = errors.New("registrant not found")

// Store is the canonical registrant persistence interface. Implementations
// must keep collections strictly owner-scoped.
type Store interface {
	// ListByOwner returns the owner's full collection ordered by number.
	ListByOwner(ctx context.Context, ownerID string) ([]registration.Registrant, error)

	// Get fetches a single registrant by ID within the owner scope.
	Get(ctx context.Context, ownerID, id string) (*registration.Registrant, error)

	// Insert adds one registrant.
	Insert(ctx context.Context, reg registration.Registrant) error

	// Update overwrites one registrant identified by OwnerID+ID.
	Update(ctx context.Context, reg registration.Registrant) error

	// Delete removes one registrant by ID within the owner scope.
	Delete(ctx context.Context, ownerID, id string) error

	// ReplaceAll swaps the owner's entire collection for regs as a two-phase
	// delete-then-insert. The PostgreSQL implementation wraps both phases in
	// one transaction; the contract for others is at-most-once, non-atomic.
	ReplaceAll(ctx context.Context, ownerID string, regs []registration.Registrant) error
}
