// README: Pricing engine tests (multiplier windows, floor, recurring stage).
package pricing

import (
	"testing"
	"time"
)

// Off-peak daytime reference clock.
var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestQuoteCarReferenceTrip(t *testing.T) {
	// 12 km / 25 min off-peak: distance tier ×1.2, everything else ×1.0.
	// (30 + 12*3 + 25*2) * 1.2 + min(25*0.5, 50) = 139.2 + 12.5 -> 152.
	q := NewService().Quote(12, 25, noon)
	if got := q.Fares[ClassCar]; got != 152 {
		t.Fatalf("car fare = %d, want 152", got)
	}
	b := q.Breakdown[ClassCar]
	if b.DistanceMultiplier != 1.2 || b.DurationMultiplier != 1.0 || b.TimeMultiplier != 1.0 {
		t.Fatalf("unexpected multipliers: %+v", b)
	}
	if b.WaitingAddOn != 12.5 {
		t.Fatalf("waiting add-on = %v, want 12.5", b.WaitingAddOn)
	}
}

func TestQuoteAllClassesPriced(t *testing.T) {
	q := NewService().Quote(5, 10, noon)
	for _, class := range Classes {
		if _, ok := q.Fares[class]; !ok {
			t.Errorf("missing fare for class %s", class)
		}
		if _, ok := q.Breakdown[class]; !ok {
			t.Errorf("missing breakdown for class %s", class)
		}
	}
}

func TestQuoteMinimumFareFloor(t *testing.T) {
	// A hop around the corner still costs 1.5x base.
	q := NewService().Quote(0.5, 2, noon)
	if got := q.Fares[ClassCar]; got != 45 {
		t.Fatalf("car fare = %d, want floor 45", got)
	}
	if got := q.Fares[ClassAuto]; got != 30 {
		t.Fatalf("auto fare = %d, want floor 30", got)
	}
}

func TestQuoteTimeWindows(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"night late", time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), 1.5},
		{"night early", time.Date(2026, 3, 10, 4, 59, 0, 0, time.UTC), 1.5},
		{"night start", time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC), 1.5},
		{"night end exclusive", time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC), 1.0},
		{"morning rush", time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC), 1.3},
		{"morning rush end", time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 1.0},
		{"evening rush", time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), 1.3},
		{"off peak", noon, 1.0},
	}
	svc := NewService()
	for _, tc := range cases {
		q := svc.Quote(5, 10, tc.at)
		if got := q.Breakdown[ClassCar].TimeMultiplier; got != tc.want {
			t.Errorf("%s: time multiplier = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestQuoteTierMultipliers(t *testing.T) {
	svc := NewService()

	// >20km and >60min stack: (30+75+140) * 1.4 * 1.3 + 35 = 480.9 -> 481.
	q := svc.Quote(25, 70, noon)
	if got := q.Fares[ClassCar]; got != 481 {
		t.Fatalf("long trip car fare = %d, want 481", got)
	}
	b := q.Breakdown[ClassCar]
	if b.DistanceMultiplier != 1.4 || b.DurationMultiplier != 1.3 {
		t.Fatalf("unexpected tier multipliers: %+v", b)
	}

	// Mid tiers.
	b = svc.Quote(15, 45, noon).Breakdown[ClassCar]
	if b.DistanceMultiplier != 1.2 || b.DurationMultiplier != 1.15 {
		t.Fatalf("unexpected mid-tier multipliers: %+v", b)
	}
}

func TestQuoteWaitingCap(t *testing.T) {
	q := NewService().Quote(1, 120, noon)
	if got := q.Breakdown[ClassMoto].WaitingAddOn; got != 50 {
		t.Fatalf("waiting add-on = %v, want capped 50", got)
	}
}

func TestQuoteDeterministic(t *testing.T) {
	svc := NewService()
	a := svc.Quote(12, 25, noon)
	b := svc.Quote(12, 25, noon)
	for _, class := range Classes {
		if a.Fares[class] != b.Fares[class] {
			t.Fatalf("fare for %s not deterministic: %d vs %d", class, a.Fares[class], b.Fares[class])
		}
	}
}

func TestFareInvalidClass(t *testing.T) {
	if _, err := NewService().Fare(5, 10, "rickshaw", noon); err != ErrInvalidVehicleClass {
		t.Fatalf("expected ErrInvalidVehicleClass, got %v", err)
	}
}

func TestRecurringTotal(t *testing.T) {
	svc := NewService()
	cases := []struct {
		name   string
		fare   int64
		period Period
		want   int64
	}{
		{"one-time is identity", 152, PeriodOneTime, 152},
		{"15 days: 14 rides at 10% off", 152, PeriodFifteenDay, 1915}, // round(152*14*0.90)
		{"1 month: 30 rides at 15% off", 100, PeriodOneMonth, 2550},
		{"1 year: 365 rides at 30% off", 152, PeriodOneYear, 38836},
	}
	for _, tc := range cases {
		got, err := svc.RecurringTotal(tc.fare, tc.period)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: total = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestRecurringTotalIdempotent(t *testing.T) {
	svc := NewService()
	a, _ := svc.RecurringTotal(152, PeriodFifteenDay)
	b, _ := svc.RecurringTotal(152, PeriodFifteenDay)
	if a != b {
		t.Fatalf("recurring total not idempotent: %d vs %d", a, b)
	}
}

func TestRecurringTotalInvalidPeriod(t *testing.T) {
	if _, err := NewService().RecurringTotal(100, "2-weeks"); err != ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
