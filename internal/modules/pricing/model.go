// README: Rate tables and quote shapes for the pricing engine.
package pricing

// Class is the vehicle class a ride can be booked for.
type Class string

const (
	ClassAuto Class = "auto"
	ClassCar  Class = "car"
	ClassMoto Class = "moto"
)

// Classes lists every bookable class; quotes always price all of them so
// the rider can pick.
var Classes = []Class{ClassAuto, ClassCar, ClassMoto}

func ValidClass(c Class) bool {
	switch c {
	case ClassAuto, ClassCar, ClassMoto:
		return true
	}
	return false
}

// Rate is the fixed tariff for one vehicle class.
type Rate struct {
	Base   float64
	PerKm  float64
	PerMin float64
}

var rates = map[Class]Rate{
	ClassAuto: {Base: 20, PerKm: 2, PerMin: 1.5},
	ClassCar:  {Base: 30, PerKm: 3, PerMin: 2},
	ClassMoto: {Base: 15, PerKm: 1.5, PerMin: 1},
}

// Breakdown explains one class's fare for display.
type Breakdown struct {
	Base               float64 `json:"base"`
	DistanceCharge     float64 `json:"distance_charge"`
	TimeCharge         float64 `json:"time_charge"`
	TimeMultiplier     float64 `json:"time_multiplier"`
	DistanceMultiplier float64 `json:"distance_multiplier"`
	DurationMultiplier float64 `json:"duration_multiplier"`
	WaitingAddOn       float64 `json:"waiting_add_on"`
	MinimumFare        float64 `json:"minimum_fare"`
}

// Quote carries fares for every class plus their breakdowns.
type Quote struct {
	Fares     map[Class]int64     `json:"fares"`
	Breakdown map[Class]Breakdown `json:"breakdown"`
}

// Period is a recurring-booking duration class.
type Period string

const (
	PeriodOneTime    Period = "one-time"
	PeriodFifteenDay Period = "15-days"
	PeriodOneMonth   Period = "1-month"
	PeriodQuarter    Period = "3-months"
	PeriodHalfYear   Period = "6-months"
	PeriodOneYear    Period = "1-year"
)

type periodTerm struct {
	Rides    int
	Discount float64
}

var periodTerms = map[Period]periodTerm{
	PeriodOneTime:    {Rides: 1, Discount: 0},
	PeriodFifteenDay: {Rides: 14, Discount: 0.10},
	PeriodOneMonth:   {Rides: 30, Discount: 0.15},
	PeriodQuarter:    {Rides: 90, Discount: 0.20},
	PeriodHalfYear:   {Rides: 180, Discount: 0.25},
	PeriodOneYear:    {Rides: 365, Discount: 0.30},
}

func ValidPeriod(p Period) bool {
	_, ok := periodTerms[p]
	return ok
}
