// README: Captain directory store backed by PostgreSQL.
package captain

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusride/internal/types"
)

var ErrNotFound = errors.New("captain not found")

// Store is the persistence contract for the captain directory. Directory
// rows are only ever mutated by the captain's own operations or by the
// presence layer clearing channels on disconnect.
type Store interface {
	Get(ctx context.Context, id types.ID) (*Captain, error)
	ListByIDs(ctx context.Context, ids []types.ID) ([]Captain, error)
	BindChannel(ctx context.Context, id types.ID, handle string) error
	ClearChannelByHandle(ctx context.Context, handle string) (*Captain, error)
	SetStatus(ctx context.Context, id types.ID, status Status) error
	SetLocation(ctx context.Context, id types.ID, pos types.Point) error
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const captainColumns = `id, vehicle_class, status, lat, lng, channel, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Captain, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+captainColumns+`
        FROM captains
        WHERE id = $1`, string(id),
	)
	c, err := scanCaptain(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) ListByIDs(ctx context.Context, ids []types.ID) ([]Captain, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
        SELECT `+captainColumns+`
        FROM captains
        WHERE id = ANY($1)`, raw,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Captain
	for rows.Next() {
		c, err := scanCaptain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// BindChannel attaches a live channel handle and marks the captain
// available. Re-binding an existing handle is a plain overwrite so
// reconnects never error.
func (s *PostgresStore) BindChannel(ctx context.Context, id types.ID, handle string) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE captains
        SET channel = $1, status = $2, updated_at = NOW()
        WHERE id = $3`,
		handle, string(StatusAvailable), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearChannelByHandle is the disconnect path: the presence layer only
// knows the dying channel, not who held it.
func (s *PostgresStore) ClearChannelByHandle(ctx context.Context, handle string) (*Captain, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE captains
        SET channel = NULL, status = $1, updated_at = NOW()
        WHERE channel = $2
        RETURNING `+captainColumns,
		string(StatusOffline), handle,
	)
	c, err := scanCaptain(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id types.ID, status Status) error {
	// offline always clears the channel in the same statement.
	tag, err := s.db.Exec(ctx, `
        UPDATE captains
        SET status = $1,
            channel = CASE WHEN $1 = 'offline' THEN NULL ELSE channel END,
            updated_at = NOW()
        WHERE id = $2`,
		string(status), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetLocation(ctx context.Context, id types.ID, pos types.Point) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE captains
        SET lat = $1, lng = $2, updated_at = NOW()
        WHERE id = $3`,
		pos.Lat, pos.Lng, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCaptain(row rowScanner) (*Captain, error) {
	var c Captain
	var channel *string
	var updated time.Time
	if err := row.Scan(&c.ID, &c.VehicleClass, &c.Status, &c.Location.Lat, &c.Location.Lng, &channel, &updated); err != nil {
		return nil, err
	}
	if channel != nil {
		c.Channel = *channel
	}
	c.UpdatedAt = updated
	return &c, nil
}
