// README: Common value objects shared across modules.
package types

// ID is an opaque entity identifier (ride, rider, captain).
type ID string

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
