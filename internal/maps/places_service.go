// README: Place suggestions; resolves free-text queries to pickup candidates.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// Place is a simplified Places result offered as a pickup or drop
// suggestion while the rider types.
type Place struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	PlaceID string  `json:"place_id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

const maxSuggestions = 5

// PlacesService wraps the Google Places text search for the suggestion
// endpoint.
type PlacesService struct {
	client *maps.Client
}

func NewPlacesService(apiKey string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// Suggest returns up to five places matching the query. campus biases
// the search toward the campus area when set.
func (s *PlacesService) Suggest(ctx context.Context, query, campus string) ([]Place, error) {
	if query == "" {
		return nil, nil
	}
	full := query
	if campus != "" {
		full = fmt.Sprintf("%s near %s", query, campus)
	}
	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{Query: full})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	var out []Place
	for _, r := range resp.Results {
		out = append(out, Place{
			Name:    r.Name,
			Address: r.FormattedAddress,
			PlaceID: r.PlaceID,
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
		})
		if len(out) >= maxSuggestions {
			break
		}
	}
	return out, nil
}
