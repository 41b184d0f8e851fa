package store

import (
	"context"
	"sync"
	"time"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

// Memory is an in-process Tier with the same compare-and-swap semantics as
// the durable tier. It backs unit tests and local runs without Postgres.
type Memory struct {
	mu    sync.Mutex
	leads map[string]*funnel.LeadContext
}

// NewMemory returns an empty in-memory tier.
func NewMemory() *Memory {
	return &Memory{leads: make(map[string]*funnel.LeadContext)}
}

func (m *Memory) Get(ctx context.Context, senderID string) (*funnel.LeadContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[senderID]
	if !ok {
		return nil, ErrNotFound
	}
	return lead.Clone(), nil
}

func (m *Memory) CreateIfAbsent(ctx context.Context, senderID string, initial funnel.Stage) (*funnel.LeadContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead, ok := m.leads[senderID]; ok {
		return lead.Clone(), nil
	}
	lead := funnel.NewLeadContext(senderID, initial, time.Now().UTC())
	m.leads[senderID] = lead
	return lead.Clone(), nil
}

func (m *Memory) CompareAndSwap(ctx context.Context, senderID string, expectedVersion int64, lead *funnel.LeadContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.leads[senderID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	committed := lead.Clone()
	committed.Version = expectedVersion + 1
	committed.UpdatedAt = time.Now().UTC()
	m.leads[senderID] = committed
	lead.Version = committed.Version
	lead.UpdatedAt = committed.UpdatedAt
	return nil
}
