// README: Ride store backed by PostgreSQL; transitions are single conditional updates.
package ride

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusride/internal/modules/pricing"
	"campusride/internal/types"
)

// Store is the persistence contract for rides. Every state-changing
// method is a compare-and-swap keyed on the expected prior status: it
// reports false when another writer got there first, and callers must
// treat that as a state conflict, never retry blindly.
type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	GetWithOTP(ctx context.Context, id types.ID) (*Ride, error)
	ListForRider(ctx context.Context, riderID types.ID) ([]Ride, error)
	ListAvailable(ctx context.Context) ([]Ride, error)
	ListScheduledForRider(ctx context.Context, riderID types.ID) ([]Ride, error)

	Claim(ctx context.Context, id, captainID types.ID) (bool, error)
	Start(ctx context.Context, id types.ID) (bool, error)
	Complete(ctx context.Context, id, captainID types.ID) (bool, error)
	CancelPending(ctx context.Context, id types.ID) (bool, error)

	Reprice(ctx context.Context, id types.ID, fare int64, period pricing.Period, start time.Time) (bool, error)
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// rideColumns deliberately omits otp; only otpColumns selects it.
const rideColumns = `id, rider_id, captain_id, pickup, destination, pickup_lat, pickup_lng,
       distance_km, duration_min, vehicle_class, fare, per_ride_fare, status,
       is_scheduled, schedule_period, schedule_start_date, payment_ref, created_at, updated_at`

const otpColumns = rideColumns + `, otp`

func (s *PostgresStore) Create(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO rides (
            id, rider_id, pickup, destination, pickup_lat, pickup_lng,
            distance_km, duration_min, vehicle_class, fare, per_ride_fare, otp, status,
            is_scheduled, schedule_period, schedule_start_date, payment_ref, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9, $10, $11, $12, $13,
            $14, $15, $16, $17, $18, $19
        )`,
		string(r.ID), string(r.RiderID), r.Pickup, r.Destination, r.PickupPoint.Lat, r.PickupPoint.Lng,
		r.DistanceKm, r.DurationMin, string(r.VehicleClass), r.Fare, r.PerRideFare, r.OTP, string(r.Status),
		r.IsScheduled, nullPeriod(r.SchedulePeriod), r.ScheduleStartDate, nullString(r.PaymentRef), r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, string(id))
	return scanRide(row, false)
}

func (s *PostgresStore) GetWithOTP(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT `+otpColumns+` FROM rides WHERE id = $1`, string(id))
	return scanRide(row, true)
}

func (s *PostgresStore) ListForRider(ctx context.Context, riderID types.ID) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+rideColumns+`
        FROM rides
        WHERE rider_id = $1
        ORDER BY created_at DESC`, string(riderID),
	)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

// ListAvailable returns unassigned live requests captains can claim.
// Scheduled bookings stay out until their start date puts them in play.
func (s *PostgresStore) ListAvailable(ctx context.Context) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+rideColumns+`
        FROM rides
        WHERE status = 'pending' AND captain_id IS NULL AND NOT is_scheduled
        ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

func (s *PostgresStore) ListScheduledForRider(ctx context.Context, riderID types.ID) ([]Ride, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+rideColumns+`
        FROM rides
        WHERE rider_id = $1 AND is_scheduled
        ORDER BY schedule_start_date`, string(riderID),
	)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

// Claim is the accept race: exactly one captain can flip a pending,
// unassigned ride to accepted.
func (s *PostgresStore) Claim(ctx context.Context, id, captainID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE rides
        SET status = 'accepted', captain_id = $1, updated_at = NOW()
        WHERE id = $2 AND status = 'pending' AND captain_id IS NULL`,
		string(captainID), string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Start(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE rides
        SET status = 'ongoing', updated_at = NOW()
        WHERE id = $1 AND status IN ('pending', 'accepted')`,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id, captainID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE rides
        SET status = 'completed', updated_at = NOW()
        WHERE id = $1 AND captain_id = $2 AND status = 'ongoing'`,
		string(id), string(captainID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) CancelPending(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE rides
        SET status = 'cancelled', updated_at = NOW()
        WHERE id = $1 AND status = 'pending'`,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Reprice is the schedule-edit path, the one legal fare mutation. Like
// the transitions it is a conditional update: the booking must still be
// a pending scheduled ride when the write lands.
func (s *PostgresStore) Reprice(ctx context.Context, id types.ID, fare int64, period pricing.Period, start time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE rides
        SET fare = $1, schedule_period = $2, schedule_start_date = $3, updated_at = NOW()
        WHERE id = $4 AND is_scheduled AND status = 'pending'`,
		fare, string(period), start, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func collectRides(rows pgx.Rows) ([]Ride, error) {
	defer rows.Close()
	var out []Ride
	for rows.Next() {
		r, err := scanRide(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner, withOTP bool) (*Ride, error) {
	var r Ride
	var captainID, period, paymentRef *string
	dest := []any{
		&r.ID, &r.RiderID, &captainID, &r.Pickup, &r.Destination, &r.PickupPoint.Lat, &r.PickupPoint.Lng,
		&r.DistanceKm, &r.DurationMin, &r.VehicleClass, &r.Fare, &r.PerRideFare, &r.Status,
		&r.IsScheduled, &period, &r.ScheduleStartDate, &paymentRef, &r.CreatedAt, &r.UpdatedAt,
	}
	if withOTP {
		dest = append(dest, &r.OTP)
	}
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if captainID != nil {
		cid := types.ID(*captainID)
		r.CaptainID = &cid
	}
	if period != nil {
		r.SchedulePeriod = pricing.Period(*period)
	}
	if paymentRef != nil {
		r.PaymentRef = *paymentRef
	}
	return &r, nil
}

func nullPeriod(p pricing.Period) *string {
	if p == "" {
		return nil
	}
	s := string(p)
	return &s
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
