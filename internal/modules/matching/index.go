// README: In-memory geo index; spherical containment without Redis.
package matching

import (
	"context"
	"sync"

	"campusride/internal/maps"
	"campusride/internal/types"
)

// Index is a naive scan-based geo index. Fine for tests and small
// single-node deployments; the Redis store covers everything else.
type Index struct {
	mu        sync.RWMutex
	positions map[types.ID]types.Point
}

func NewIndex() *Index {
	return &Index{positions: make(map[types.ID]types.Point)}
}

func (g *Index) Add(_ context.Context, id types.ID, pos types.Point) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[id] = pos
	return nil
}

func (g *Index) Remove(_ context.Context, id types.ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.positions, id)
	return nil
}

func (g *Index) Nearby(_ context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []types.ID
	for id, pos := range g.positions {
		if maps.HaversineKm(p.Lat, p.Lng, pos.Lat, pos.Lng) <= radiusKm {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
