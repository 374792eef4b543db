// README: Pricing engine; pure fare computation from distance, duration, and clock.
package pricing

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")
	ErrInvalidPeriod       = errors.New("invalid schedule period")
)

const (
	waitingRatePerMin = 0.5
	waitingCap        = 50.0
	minimumFareFactor = 1.5
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Quote prices all vehicle classes for one trip. Deterministic: the same
// distance, duration, and clock always produce the same fares.
func (s *Service) Quote(distanceKm, durationMin float64, now time.Time) Quote {
	q := Quote{
		Fares:     make(map[Class]int64, len(Classes)),
		Breakdown: make(map[Class]Breakdown, len(Classes)),
	}
	timeMult := timeMultiplier(now)
	distMult := distanceMultiplier(distanceKm)
	durMult := durationMultiplier(durationMin)
	waiting := math.Min(durationMin*waitingRatePerMin, waitingCap)

	for _, class := range Classes {
		rate := rates[class]
		raw := (rate.Base + distanceKm*rate.PerKm + durationMin*rate.PerMin) * timeMult * distMult * durMult
		floor := rate.Base * minimumFareFactor
		fare := math.Round(math.Max(raw+waiting, floor))

		q.Fares[class] = int64(fare)
		q.Breakdown[class] = Breakdown{
			Base:               rate.Base,
			DistanceCharge:     distanceKm * rate.PerKm,
			TimeCharge:         durationMin * rate.PerMin,
			TimeMultiplier:     timeMult,
			DistanceMultiplier: distMult,
			DurationMultiplier: durMult,
			WaitingAddOn:       waiting,
			MinimumFare:        floor,
		}
	}
	return q
}

// Fare prices a single class.
func (s *Service) Fare(distanceKm, durationMin float64, class Class, now time.Time) (int64, error) {
	if !ValidClass(class) {
		return 0, ErrInvalidVehicleClass
	}
	return s.Quote(distanceKm, durationMin, now).Fares[class], nil
}

// RecurringTotal applies the stage-2 subscription calculation to a
// per-ride fare. Idempotent: re-invoked whenever a scheduled booking is
// edited to a new period.
func (s *Service) RecurringTotal(fare int64, period Period) (int64, error) {
	term, ok := periodTerms[period]
	if !ok {
		return 0, ErrInvalidPeriod
	}
	return int64(math.Round(float64(fare) * float64(term.Rides) * (1 - term.Discount))), nil
}

// timeMultiplier applies the night window first; night and rush windows
// never overlap but night wins by construction.
func timeMultiplier(now time.Time) float64 {
	h := now.Hour()
	switch {
	case h >= 22 || h < 5:
		return 1.5
	case (h >= 8 && h < 10) || (h >= 17 && h < 19):
		return 1.3
	default:
		return 1.0
	}
}

func distanceMultiplier(km float64) float64 {
	switch {
	case km > 20:
		return 1.4
	case km > 10:
		return 1.2
	default:
		return 1.0
	}
}

func durationMultiplier(min float64) float64 {
	switch {
	case min > 60:
		return 1.3
	case min > 30:
		return 1.15
	default:
		return 1.0
	}
}
