// README: Geo index for captain positions backed by Redis GEO.
package matching

import (
	"context"

	"github.com/redis/go-redis/v9"

	"campusride/internal/types"
)

const captainGeoKey = "matching:captains"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) Add(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, captainGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) Remove(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, captainGeoKey, string(id)).Err()
}

// Nearby returns ids of captains whose stored position falls within
// radiusKm of p, by great-circle distance.
func (s *Store) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := s.redis.GeoSearch(ctx, captainGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}
