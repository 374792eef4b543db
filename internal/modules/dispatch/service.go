// README: Dispatch engine; fans ride lifecycle events out to live channels.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"campusride/internal/auth"
	"campusride/internal/modules/captain"
	"campusride/internal/modules/ride"
	"campusride/internal/observability"
	"campusride/internal/types"
)

// Channels is the slice of the presence hub the dispatcher drives.
type Channels interface {
	SendToSubject(subject types.ID, event string, data any) bool
	BroadcastToRole(role, event string, data any)
}

// Matcher finds candidate captains for a pickup point.
type Matcher interface {
	FindCaptains(ctx context.Context, pickup types.Point, radiusKm float64) ([]captain.Captain, error)
}

// Service turns persisted ride transitions into channel events. Every
// delivery is best-effort: a rider with no live session just misses the
// push and catches up over HTTP. Nothing here may fail the transition
// that already happened.
type Service struct {
	channels Channels
	matcher  Matcher
	log      *slog.Logger

	mu         sync.Mutex
	candidates map[types.ID][]types.ID
}

func NewService(channels Channels, matcher Matcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		channels:   channels,
		matcher:    matcher,
		log:        log,
		candidates: make(map[types.ID][]types.ID),
	}
}

// RideCreated offers the request to every available captain near the
// pickup, and remembers who was offered so the losers can be told when
// the ride goes.
func (s *Service) RideCreated(ctx context.Context, r *ride.Ride) {
	found, err := s.matcher.FindCaptains(ctx, r.PickupPoint, 0)
	if err != nil {
		s.log.Error("candidate search failed", "ride_id", r.ID, "err", err)
		return
	}
	if len(found) == 0 {
		s.log.Info("no captains in range", "ride_id", r.ID)
		return
	}

	offered := make([]types.ID, 0, len(found))
	for _, c := range found {
		if s.send(c.ID, EventNewRide, r) {
			offered = append(offered, c.ID)
		}
	}
	s.mu.Lock()
	s.candidates[r.ID] = offered
	s.mu.Unlock()
	s.log.Info("ride offered", "ride_id", r.ID, "candidates", len(offered))
}

// RideAccepted confirms to both parties and withdraws the offer from
// everyone else. The rider's confirmation carries the OTP.
func (s *Service) RideAccepted(ctx context.Context, r *ride.Ride) {
	s.send(r.RiderID, EventRideConfirmed, r)

	public := *r
	public.OTP = ""
	if r.CaptainID != nil {
		s.send(*r.CaptainID, EventRideConfirmationSuccess, &public)
	}

	for _, id := range s.takeCandidates(r.ID) {
		if r.CaptainID != nil && id == *r.CaptainID {
			continue
		}
		s.send(id, EventRideTaken, map[string]types.ID{"ride_id": r.ID})
	}
}

// RideStarted and RideEnded notify both parties and announce the state
// change on the rider group channel, keeping every open rider view in
// step without a poll.
func (s *Service) RideStarted(ctx context.Context, r *ride.Ride) {
	s.notifyParties(r, EventRideStarted)
	s.channels.BroadcastToRole(auth.RoleRider, EventRideStarted, rideRef(r))
}

func (s *Service) RideEnded(ctx context.Context, r *ride.Ride) {
	s.notifyParties(r, EventRideEnded)
	s.channels.BroadcastToRole(auth.RoleRider, EventRideEnded, rideRef(r))
}

// rideRef is the broadcast payload: enough to invalidate a cached view,
// nothing that belongs to the ride's own parties.
func rideRef(r *ride.Ride) map[string]any {
	return map[string]any{"ride_id": r.ID, "status": r.Status}
}

// RideCancelled tells the rider, the captain if one had claimed it, and
// every captain still holding the open offer.
func (s *Service) RideCancelled(ctx context.Context, r *ride.Ride) {
	s.notifyParties(r, EventRideCancelled)
	for _, id := range s.takeCandidates(r.ID) {
		s.send(id, EventRideCancelled, map[string]types.ID{"ride_id": r.ID})
	}
}

// BroadcastCaptainsOnline pushes the current open requests to every
// connected captain, mirroring the listing a captain app loads on start.
func (s *Service) BroadcastCaptainsOnline(rides []ride.Ride) {
	s.channels.BroadcastToRole(auth.RoleCaptain, EventNewRide, rides)
}

func (s *Service) notifyParties(r *ride.Ride, event string) {
	s.send(r.RiderID, event, r)
	if r.CaptainID != nil {
		s.send(*r.CaptainID, event, r)
	}
}

func (s *Service) send(subject types.ID, event string, data any) bool {
	if !s.channels.SendToSubject(subject, event, data) {
		s.log.Info("no live channel for subject", "subject", subject, "event", event)
		return false
	}
	observability.DispatchesSentTotal.Inc()
	return true
}

func (s *Service) takeCandidates(id types.ID) []types.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.candidates[id]
	delete(s.candidates, id)
	return out
}
