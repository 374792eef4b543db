// README: Ride aggregate and lifecycle definitions.
package ride

import (
	"time"

	"campusride/internal/modules/pricing"
	"campusride/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions represents the ride state flow as code. A ride may
// start straight from pending: the original flow lets a captain begin a
// trip with the rider's OTP even when the accept never landed.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusOngoing, StatusCancelled},
	StatusAccepted: {StatusOngoing},
	StatusOngoing:  {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Ride is the central entity. Fare is immutable after creation except
// through the scheduled-ride edit path; OTP is write-once and excluded
// from default reads.
type Ride struct {
	ID           types.ID      `json:"id"`
	RiderID      types.ID      `json:"rider_id"`
	CaptainID    *types.ID     `json:"captain_id,omitempty"`
	Pickup       string        `json:"pickup"`
	Destination  string        `json:"destination"`
	PickupPoint  types.Point   `json:"pickup_point"`
	DistanceKm   float64       `json:"distance_km"`
	DurationMin  float64       `json:"duration_min"`
	VehicleClass pricing.Class `json:"vehicle_class"`
	Fare         int64         `json:"fare"`
	PerRideFare  int64         `json:"-"`
	OTP          string        `json:"otp,omitempty"`
	Status       Status        `json:"status"`

	IsScheduled       bool           `json:"is_scheduled,omitempty"`
	SchedulePeriod    pricing.Period `json:"schedule_period,omitempty"`
	ScheduleStartDate *time.Time     `json:"schedule_start_date,omitempty"`
	PaymentRef        string         `json:"payment_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignedTo reports whether the ride belongs to the given captain.
func (r *Ride) AssignedTo(captainID types.ID) bool {
	return r.CaptainID != nil && *r.CaptainID == captainID
}
