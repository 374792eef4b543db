// README: Captain directory entry and live status definitions.
package captain

import (
	"time"

	"campusride/internal/modules/pricing"
	"campusride/internal/types"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// Captain is the directory entry the matcher and dispatcher read.
// Invariant: Status == offline implies Channel is empty.
type Captain struct {
	ID           types.ID      `json:"id"`
	VehicleClass pricing.Class `json:"vehicle_class"`
	Status       Status        `json:"status"`
	Location     types.Point   `json:"location"`
	Channel      string        `json:"-"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Reachable reports whether the captain currently holds a live channel.
func (c *Captain) Reachable() bool {
	return c.Channel != ""
}
