// README: Geospatial matcher; radius search filtered to available captains.
package matching

import (
	"context"

	"campusride/internal/modules/captain"
	"campusride/internal/types"
)

type Geo interface {
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error)
}

type Directory interface {
	ListByIDs(ctx context.Context, ids []types.ID) ([]captain.Captain, error)
}

type Service struct {
	geo       Geo
	directory Directory
	radiusKm  float64
}

func NewService(geo Geo, directory Directory, radiusKm float64) *Service {
	return &Service{geo: geo, directory: directory, radiusKm: radiusKm}
}

// FindCaptains returns every available captain within radiusKm of the
// pickup point. The result is an unordered candidate set; an empty set
// is a valid answer, not an error. Offline and busy captains never
// appear, no matter what the geo index still holds for them.
func (s *Service) FindCaptains(ctx context.Context, pickup types.Point, radiusKm float64) ([]captain.Captain, error) {
	if radiusKm <= 0 {
		radiusKm = s.radiusKm
	}
	ids, err := s.geo.Nearby(ctx, pickup, radiusKm)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	entries, err := s.directory.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	candidates := entries[:0]
	for _, c := range entries {
		if c.Status == captain.StatusAvailable {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}
