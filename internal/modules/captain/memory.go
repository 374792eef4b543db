// README: In-memory captain store for tests and single-node runs.
package captain

import (
	"context"
	"sync"
	"time"

	"campusride/internal/types"
)

type MemoryStore struct {
	mu       sync.RWMutex
	captains map[types.ID]*Captain
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{captains: make(map[types.ID]*Captain)}
}

// Put seeds or replaces a directory entry.
func (m *MemoryStore) Put(c Captain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.UpdatedAt = time.Now()
	m.captains[c.ID] = &c
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.captains[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListByIDs(_ context.Context, ids []types.ID) ([]Captain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Captain
	for _, id := range ids {
		if c, ok := m.captains[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MemoryStore) BindChannel(_ context.Context, id types.ID, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.captains[id]
	if !ok {
		return ErrNotFound
	}
	c.Channel = handle
	c.Status = StatusAvailable
	c.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ClearChannelByHandle(_ context.Context, handle string) (*Captain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.captains {
		if c.Channel == handle {
			c.Channel = ""
			c.Status = StatusOffline
			c.UpdatedAt = time.Now()
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SetStatus(_ context.Context, id types.ID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.captains[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	if status == StatusOffline {
		c.Channel = ""
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SetLocation(_ context.Context, id types.ID, pos types.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.captains[id]
	if !ok {
		return ErrNotFound
	}
	c.Location = pos
	c.UpdatedAt = time.Now()
	return nil
}
