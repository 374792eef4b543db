// README: In-memory ride store; same conditional-update semantics as Postgres.
package ride

import (
	"context"
	"sort"
	"sync"
	"time"

	"campusride/internal/modules/pricing"
	"campusride/internal/types"
)

// MemoryStore mirrors PostgresStore for tests and single-node runs.
// Each transition checks and flips status under one lock acquisition,
// so the claim race behaves exactly like the SQL conditional update.
type MemoryStore struct {
	mu    sync.Mutex
	rides map[types.ID]*Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[types.ID]*Ride)}
}

func (s *MemoryStore) Create(_ context.Context, r *Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rides[r.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.OTP = ""
	return &cp, nil
}

func (s *MemoryStore) GetWithOTP(_ context.Context, id types.ID) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListForRider(_ context.Context, riderID types.ID) ([]Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Ride
	for _, r := range s.rides {
		if r.RiderID == riderID {
			cp := *r
			cp.OTP = ""
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListAvailable(_ context.Context) ([]Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Ride
	for _, r := range s.rides {
		if r.Status == StatusPending && r.CaptainID == nil && !r.IsScheduled {
			cp := *r
			cp.OTP = ""
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListScheduledForRider(_ context.Context, riderID types.ID) ([]Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Ride
	for _, r := range s.rides {
		if r.RiderID == riderID && r.IsScheduled {
			cp := *r
			cp.OTP = ""
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ScheduleStartDate, out[j].ScheduleStartDate
		if a == nil || b == nil {
			return b == nil
		}
		return a.Before(*b)
	})
	return out, nil
}

func (s *MemoryStore) Claim(_ context.Context, id, captainID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != StatusPending || r.CaptainID != nil {
		return false, nil
	}
	cid := captainID
	r.CaptainID = &cid
	r.Status = StatusAccepted
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Start(_ context.Context, id types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || (r.Status != StatusPending && r.Status != StatusAccepted) {
		return false, nil
	}
	r.Status = StatusOngoing
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Complete(_ context.Context, id, captainID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != StatusOngoing || !r.AssignedTo(captainID) {
		return false, nil
	}
	r.Status = StatusCompleted
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) CancelPending(_ context.Context, id types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusCancelled
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Reprice(_ context.Context, id types.ID, fare int64, period pricing.Period, start time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || !r.IsScheduled || r.Status != StatusPending {
		return false, nil
	}
	r.Fare = fare
	r.SchedulePeriod = period
	st := start
	r.ScheduleStartDate = &st
	r.UpdatedAt = time.Now()
	return true, nil
}
