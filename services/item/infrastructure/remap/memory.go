// Package remap holds the IdentifierRemap implementations: a process-local
// table for development and single-replica deployments, and a Redis-backed
// table shared by every API replica.
package remap

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
)

var (
	_ repositories.IdentifierRemap = (*MemoryRemap)(nil)
	_ repositories.IdentifierRemap = (*RedisRemap)(nil)
)

// MemoryRemap keeps substitutions in process memory. Entries live until they
// are forgotten or purged, or the process exits.
type MemoryRemap struct {
	mu      sync.RWMutex
	entries map[string]map[uuid.UUID]uuid.UUID
}

// NewMemoryRemap returns an empty MemoryRemap.
func NewMemoryRemap() *MemoryRemap {
	return &MemoryRemap{entries: make(map[string]map[uuid.UUID]uuid.UUID)}
}

func (m *MemoryRemap) Record(_ context.Context, tenant string, storeID, originalID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.entries[tenant]
	if !ok {
		t = make(map[uuid.UUID]uuid.UUID)
		m.entries[tenant] = t
	}
	t[storeID] = originalID
	return nil
}

func (m *MemoryRemap) Resolve(_ context.Context, tenant string, id uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if original, ok := m.entries[tenant][id]; ok {
		return original, nil
	}
	return id, nil
}

func (m *MemoryRemap) Forget(_ context.Context, tenant string, storeID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.entries[tenant]; ok {
		delete(t, storeID)
		if len(t) == 0 {
			delete(m.entries, tenant)
		}
	}
	return nil
}

func (m *MemoryRemap) Purge(_ context.Context, tenant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, tenant)
	return nil
}

// Len returns the number of entries held for tenant.
func (m *MemoryRemap) Len(tenant string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[tenant])
}
