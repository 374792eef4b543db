// README: Route resolution; turns two opaque addresses into distance and duration.
package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrRouteUnavailable is returned when no drivable route can be resolved
// between pickup and destination.
var ErrRouteUnavailable = errors.New("route unavailable")

// Route is the resolved shape of a trip used for pricing.
type Route struct {
	DistanceKm  float64
	DurationMin float64
	Pickup      Coordinate
}

type Coordinate struct {
	Lat float64
	Lng float64
}

// RouteResolver is the contract the ride module consumes.
type RouteResolver interface {
	ResolveRoute(ctx context.Context, origin, destination string) (Route, error)
}

// RouteService resolves routes through the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

func (s *RouteService) ResolveRoute(ctx context.Context, origin, destination string) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
	}
	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrRouteUnavailable
	}
	leg := routes[0].Legs[0]
	return Route{
		DistanceKm:  float64(leg.Distance.Meters) / 1000.0,
		DurationMin: leg.Duration.Minutes(),
		Pickup: Coordinate{
			Lat: leg.StartLocation.Lat,
			Lng: leg.StartLocation.Lng,
		},
	}, nil
}
