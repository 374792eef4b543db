// README: Scheduled recurring bookings; two-stage pricing over the ride engine.
package ride

import (
	"context"
	"time"

	"campusride/internal/modules/pricing"
	"campusride/internal/types"
)

// PaymentGateway opens a payment intent for a scheduled booking total.
// Nil gateway means bookings are recorded without an upfront charge.
type PaymentGateway interface {
	CreateBookingIntent(ctx context.Context, total types.Money, riderID types.ID) (id, clientSecret string, err error)
}

type ScheduleCommand struct {
	RiderID      types.ID
	Pickup       string
	Destination  string
	VehicleClass pricing.Class
	Period       pricing.Period
	StartDate    time.Time
}

type EditScheduleCommand struct {
	RideID    types.ID
	RiderID   types.ID
	Period    pricing.Period
	StartDate time.Time
}

// SetPaymentGateway attaches the optional upfront-charge path.
func (s *Service) SetPaymentGateway(g PaymentGateway) {
	s.payments = g
}

// Schedule books a recurring ride. Stage one prices a single trip the
// usual way; stage two multiplies it out over the period and applies
// the period discount. The per-ride fare is kept so later edits can
// re-run stage two without re-resolving the route.
func (s *Service) Schedule(ctx context.Context, cmd ScheduleCommand) (*Ride, error) {
	if cmd.RiderID == "" || cmd.Pickup == "" || cmd.Destination == "" {
		return nil, ErrBadRequest
	}
	if !pricing.ValidClass(cmd.VehicleClass) {
		return nil, pricing.ErrInvalidVehicleClass
	}
	if !pricing.ValidPeriod(cmd.Period) {
		return nil, pricing.ErrInvalidPeriod
	}
	if cmd.StartDate.Before(s.now().Truncate(24 * time.Hour)) {
		return nil, ErrBadRequest
	}

	route, err := s.routes.ResolveRoute(ctx, cmd.Pickup, cmd.Destination)
	if err != nil {
		return nil, err
	}
	perRide, err := s.pricing.Fare(route.DistanceKm, route.DurationMin, cmd.VehicleClass, s.now())
	if err != nil {
		return nil, err
	}
	total, err := s.pricing.RecurringTotal(perRide, cmd.Period)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := cmd.StartDate
	r := &Ride{
		ID:                newID(),
		RiderID:           cmd.RiderID,
		Pickup:            cmd.Pickup,
		Destination:       cmd.Destination,
		PickupPoint:       types.Point{Lat: route.Pickup.Lat, Lng: route.Pickup.Lng},
		DistanceKm:        route.DistanceKm,
		DurationMin:       route.DurationMin,
		VehicleClass:      cmd.VehicleClass,
		Fare:              total,
		PerRideFare:       perRide,
		OTP:               newOTP(),
		Status:            StatusPending,
		IsScheduled:       true,
		SchedulePeriod:    cmd.Period,
		ScheduleStartDate: &start,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if s.payments != nil {
		ref, _, err := s.payments.CreateBookingIntent(ctx, types.Money{Amount: total, Currency: "inr"}, cmd.RiderID)
		if err != nil {
			return nil, err
		}
		r.PaymentRef = ref
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("ride scheduled", "ride_id", r.ID, "rider_id", r.RiderID,
		"period", r.SchedulePeriod, "per_ride", perRide, "total", total)

	// Scheduled bookings are not dispatched; they enter the live pool
	// when their start date comes around.
	public := *r
	public.OTP = ""
	return &public, nil
}

// EditSchedule re-runs the stage-two calculation with a new period or
// start date. This is the only path that may rewrite a stored fare, and
// it always starts from the immutable per-ride figure, so editing back
// and forth between periods is idempotent.
func (s *Service) EditSchedule(ctx context.Context, cmd EditScheduleCommand) (*Ride, error) {
	if cmd.RideID == "" || cmd.RiderID == "" {
		return nil, ErrBadRequest
	}
	if !pricing.ValidPeriod(cmd.Period) {
		return nil, pricing.ErrInvalidPeriod
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if r.RiderID != cmd.RiderID {
		return nil, ErrNotFound
	}
	if !r.IsScheduled {
		return nil, ErrNotScheduled
	}
	if r.Status != StatusPending {
		return nil, ErrInvalidState
	}

	total, err := s.pricing.RecurringTotal(r.PerRideFare, cmd.Period)
	if err != nil {
		return nil, err
	}
	start := cmd.StartDate
	if start.IsZero() && r.ScheduleStartDate != nil {
		start = *r.ScheduleStartDate
	}
	ok, err := s.store.Reprice(ctx, cmd.RideID, total, cmd.Period, start)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The booking left pending between the read and the update.
		return nil, ErrInvalidState
	}
	edited, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	s.log.Info("schedule edited", "ride_id", edited.ID, "period", cmd.Period, "total", total)
	return edited, nil
}

func (s *Service) ListScheduledForRider(ctx context.Context, riderID types.ID) ([]Ride, error) {
	return s.store.ListScheduledForRider(ctx, riderID)
}
