// README: Ride lifecycle service; every transition funnels through a store CAS.
package ride

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campusride/internal/maps"
	"campusride/internal/modules/pricing"
	"campusride/internal/observability"
	"campusride/internal/types"
)

var (
	ErrBadRequest     = errors.New("invalid ride request")
	ErrNotFound       = errors.New("ride not found")
	ErrRideTaken      = errors.New("ride already taken")
	ErrInvalidState   = errors.New("invalid ride state")
	ErrAlreadyOngoing = errors.New("ride already ongoing")
	ErrNotOngoing     = errors.New("ride not ongoing")
	ErrCannotCancel   = errors.New("ride cannot be cancelled after acceptance")
	ErrOtpMissing     = errors.New("otp required")
	ErrOtpMismatch    = errors.New("otp mismatch")
	ErrNotScheduled   = errors.New("ride is not a scheduled booking")
)

// Dispatcher receives lifecycle events after the state change has been
// persisted. Implementations must not block the caller for long; the
// service treats delivery as best-effort.
type Dispatcher interface {
	RideCreated(ctx context.Context, r *Ride)
	RideAccepted(ctx context.Context, r *Ride)
	RideStarted(ctx context.Context, r *Ride)
	RideEnded(ctx context.Context, r *Ride)
	RideCancelled(ctx context.Context, r *Ride)
}

type CreateCommand struct {
	RiderID      types.ID
	Pickup       string
	Destination  string
	VehicleClass pricing.Class
}

type AcceptCommand struct {
	RideID    types.ID
	CaptainID types.ID
}

type StartCommand struct {
	RideID    types.ID
	CaptainID types.ID
	OTP       string
}

type EndCommand struct {
	RideID    types.ID
	CaptainID types.ID
}

type CancelCommand struct {
	RideID  types.ID
	RiderID types.ID
}

type Service struct {
	store    Store
	routes   maps.RouteResolver
	pricing  *pricing.Service
	dispatch Dispatcher
	payments PaymentGateway
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires the lifecycle engine. dispatch may be nil; state
// changes then happen silently, which is what batch tooling wants.
func NewService(store Store, routes maps.RouteResolver, pr *pricing.Service, dispatch Dispatcher, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		routes:   routes,
		pricing:  pr,
		dispatch: dispatch,
		log:      log,
		now:      time.Now,
	}
}

// Create resolves the route, prices the trip, and persists a pending
// ride with a fresh OTP. The fare is locked in here; nothing after this
// point may change it.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Ride, error) {
	if cmd.RiderID == "" || cmd.Pickup == "" || cmd.Destination == "" {
		return nil, ErrBadRequest
	}
	if !pricing.ValidClass(cmd.VehicleClass) {
		return nil, pricing.ErrInvalidVehicleClass
	}

	route, err := s.routes.ResolveRoute(ctx, cmd.Pickup, cmd.Destination)
	if err != nil {
		return nil, err
	}
	fare, err := s.pricing.Fare(route.DistanceKm, route.DurationMin, cmd.VehicleClass, s.now())
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &Ride{
		ID:           newID(),
		RiderID:      cmd.RiderID,
		Pickup:       cmd.Pickup,
		Destination:  cmd.Destination,
		PickupPoint:  types.Point{Lat: route.Pickup.Lat, Lng: route.Pickup.Lng},
		DistanceKm:   route.DistanceKm,
		DurationMin:  route.DurationMin,
		VehicleClass: cmd.VehicleClass,
		Fare:         fare,
		PerRideFare:  fare,
		OTP:          newOTP(),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	observability.RidesCreatedTotal.Inc()
	s.log.Info("ride created", "ride_id", r.ID, "rider_id", r.RiderID, "class", r.VehicleClass, "fare", r.Fare)

	public := *r
	public.OTP = ""
	if s.dispatch != nil {
		// Captains being offered the ride never see the OTP.
		s.dispatch.RideCreated(ctx, &public)
	}
	return &public, nil
}

// Accept lets a captain claim a pending ride. Under contention exactly
// one claim wins; every loser gets ErrRideTaken (or ErrNotFound when
// the ride never existed) and must move on to the next request.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Ride, error) {
	if cmd.RideID == "" || cmd.CaptainID == "" {
		return nil, ErrBadRequest
	}
	won, err := s.store.Claim(ctx, cmd.RideID, cmd.CaptainID)
	if err != nil {
		return nil, err
	}
	if !won {
		observability.AcceptsLostTotal.Inc()
		if _, err := s.store.Get(ctx, cmd.RideID); err != nil {
			return nil, err
		}
		return nil, ErrRideTaken
	}
	observability.AcceptsWonTotal.Inc()

	// The rider notification carries the OTP so the captain can be
	// verified at pickup.
	r, err := s.store.GetWithOTP(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	s.log.Info("ride accepted", "ride_id", r.ID, "captain_id", cmd.CaptainID)
	if s.dispatch != nil {
		s.dispatch.RideAccepted(ctx, r)
	}
	public := *r
	public.OTP = ""
	return &public, nil
}

// Start begins the trip after OTP verification. A ride may start from
// accepted or straight from pending; an already-ongoing ride reports
// that distinctly so the captain app can resync instead of erroring.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Ride, error) {
	if cmd.RideID == "" || cmd.CaptainID == "" {
		return nil, ErrBadRequest
	}
	if cmd.OTP == "" {
		return nil, ErrOtpMissing
	}
	r, err := s.store.GetWithOTP(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusOngoing {
		return nil, ErrAlreadyOngoing
	}
	if !CanTransition(r.Status, StatusOngoing) {
		return nil, ErrInvalidState
	}
	if r.Status == StatusAccepted && !r.AssignedTo(cmd.CaptainID) {
		return nil, ErrNotFound
	}
	if r.OTP != cmd.OTP {
		return nil, ErrOtpMismatch
	}

	ok, err := s.store.Start(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race between the read above and the update: the ride
		// moved to a state we can no longer start from.
		cur, err := s.store.Get(ctx, cmd.RideID)
		if err != nil {
			return nil, err
		}
		if cur.Status == StatusOngoing {
			return nil, ErrAlreadyOngoing
		}
		return nil, ErrInvalidState
	}

	started, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	s.log.Info("ride started", "ride_id", started.ID, "captain_id", cmd.CaptainID)
	if s.dispatch != nil {
		s.dispatch.RideStarted(ctx, started)
	}
	return started, nil
}

// End completes an ongoing ride. Only the assigned captain may end it;
// anyone else sees the ride as not theirs.
func (s *Service) End(ctx context.Context, cmd EndCommand) (*Ride, error) {
	if cmd.RideID == "" || cmd.CaptainID == "" {
		return nil, ErrBadRequest
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !r.AssignedTo(cmd.CaptainID) {
		return nil, ErrNotFound
	}
	if !CanTransition(r.Status, StatusCompleted) {
		return nil, ErrNotOngoing
	}
	ok, err := s.store.Complete(ctx, cmd.RideID, cmd.CaptainID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotOngoing
	}
	ended, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	s.log.Info("ride ended", "ride_id", ended.ID, "captain_id", cmd.CaptainID, "fare", ended.Fare)
	if s.dispatch != nil {
		s.dispatch.RideEnded(ctx, ended)
	}
	return ended, nil
}

// Cancel withdraws a pending request. Once any captain has accepted,
// cancellation is off the table for the rider.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Ride, error) {
	if cmd.RideID == "" || cmd.RiderID == "" {
		return nil, ErrBadRequest
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if r.RiderID != cmd.RiderID {
		return nil, ErrNotFound
	}
	if !CanTransition(r.Status, StatusCancelled) {
		return nil, ErrCannotCancel
	}
	ok, err := s.store.CancelPending(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A captain accepted between the read and the update.
		return nil, ErrCannotCancel
	}
	cancelled, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	s.log.Info("ride cancelled", "ride_id", cancelled.ID, "rider_id", cmd.RiderID)
	if s.dispatch != nil {
		s.dispatch.RideCancelled(ctx, cancelled)
	}
	return cancelled, nil
}

// GetAuthorized fetches a ride for one of its participants. The OTP is
// included only for the owning rider while the trip can still start.
func (s *Service) GetAuthorized(ctx context.Context, id, subject types.ID) (*Ride, error) {
	r, err := s.store.GetWithOTP(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.RiderID != subject && !r.AssignedTo(subject) {
		return nil, ErrNotFound
	}
	if r.RiderID != subject || (r.Status != StatusPending && r.Status != StatusAccepted) {
		r.OTP = ""
	}
	return r, nil
}

// QuoteFare prices a prospective trip across all vehicle classes so the
// rider can compare before booking.
func (s *Service) QuoteFare(ctx context.Context, pickup, destination string) (pricing.Quote, maps.Route, error) {
	if pickup == "" || destination == "" {
		return pricing.Quote{}, maps.Route{}, ErrBadRequest
	}
	route, err := s.routes.ResolveRoute(ctx, pickup, destination)
	if err != nil {
		return pricing.Quote{}, maps.Route{}, err
	}
	return s.pricing.Quote(route.DistanceKm, route.DurationMin, s.now()), route, nil
}

func (s *Service) ListForRider(ctx context.Context, riderID types.ID) ([]Ride, error) {
	return s.store.ListForRider(ctx, riderID)
}

func (s *Service) ListAvailable(ctx context.Context) ([]Ride, error) {
	return s.store.ListAvailable(ctx)
}
