// Package store persists per-lead funnel state.
//
// The production layout is two-tier: a Redis fast tier with a TTL in front of
// a PostgreSQL durable tier. Reads hit the fast tier first and hydrate it on
// miss; writes commit to the durable tier and update the fast tier
// best-effort. Optimistic versioning (compare-and-swap) is the only
// serialization mechanism for concurrent mutations of the same lead.
package store

import (
	"context"
	"fmt"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

// Sentinel errors. Store implementations wrap the underlying cause with %w
// where one exists.
var (
	// ErrNotFound is returned by Get for an unseen sender.
	ErrNotFound = fmt.Errorf("lead context not found")
	// ErrVersionConflict means the expected version was stale; the caller
	// must re-read and retry the whole transition.
	ErrVersionConflict = fmt.Errorf("lead context version conflict")
	// ErrStoreUnavailable means the durable tier could not be reached;
	// fatal for the triggering request.
	ErrStoreUnavailable = fmt.Errorf("context store unavailable")
)

// Tier is the context-store contract shared by the durable tier, the
// two-tier composite and the in-memory implementation.
type Tier interface {
	// Get returns the lead context or ErrNotFound.
	Get(ctx context.Context, senderID string) (*funnel.LeadContext, error)
	// CreateIfAbsent initializes a context for an unseen sender and is
	// idempotent: when a concurrent creator wins the race the existing
	// context is returned untouched.
	CreateIfAbsent(ctx context.Context, senderID string, initial funnel.Stage) (*funnel.LeadContext, error)
	// CompareAndSwap writes lead with version expectedVersion+1 iff the
	// stored version still equals expectedVersion; otherwise
	// ErrVersionConflict. On success lead.Version holds the new version.
	CompareAndSwap(ctx context.Context, senderID string, expectedVersion int64, lead *funnel.LeadContext) error
}
