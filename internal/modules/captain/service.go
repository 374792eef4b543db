// README: Captain directory service; owns status, location, and channel lifecycle.
package captain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campusride/internal/ingest"
	"campusride/internal/types"
)

var ErrBadStatus = errors.New("invalid captain status")

// GeoIndex is the slice of the matcher's store the directory keeps in
// sync with captain movement.
type GeoIndex interface {
	Add(ctx context.Context, id types.ID, pos types.Point) error
	Remove(ctx context.Context, id types.ID) error
}

// LocationFeed publishes position reports for analytics and replay.
type LocationFeed interface {
	PublishLocation(e ingest.LocationEvent) error
}

type Service struct {
	store Store
	geo   GeoIndex
	feed  LocationFeed
	log   *slog.Logger
}

// NewService wires the directory. geo and feed may be nil; directory
// writes are the source of truth and the rest is best-effort.
func NewService(store Store, geo GeoIndex, feed LocationFeed, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, geo: geo, feed: feed, log: log}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Captain, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByIDs(ctx context.Context, ids []types.ID) ([]Captain, error) {
	return s.store.ListByIDs(ctx, ids)
}

// Connect binds a fresh channel handle. A reconnecting captain simply
// overwrites the stale handle.
func (s *Service) Connect(ctx context.Context, id types.ID, handle string) error {
	return s.store.BindChannel(ctx, id, handle)
}

// Disconnect clears whichever captain held the dying channel and drops
// it from the geo index. Unknown handles are fine: the channel may have
// belonged to a rider, or the captain re-bound before the old transport
// noticed it was dead.
func (s *Service) Disconnect(ctx context.Context, handle string) {
	c, err := s.store.ClearChannelByHandle(ctx, handle)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("disconnect cleanup failed", "handle", handle, "err", err)
		}
		return
	}
	s.removeFromGeo(ctx, c.ID)
}

func (s *Service) UpdateStatus(ctx context.Context, id types.ID, status Status) error {
	if !ValidStatus(status) {
		return ErrBadStatus
	}
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return err
	}
	if status == StatusOffline {
		s.removeFromGeo(ctx, id)
	}
	return nil
}

// UpdateLocation persists the position, refreshes the geo index, and
// emits a feed event. Only the directory write can fail the call.
func (s *Service) UpdateLocation(ctx context.Context, id types.ID, pos types.Point) error {
	if err := s.store.SetLocation(ctx, id, pos); err != nil {
		return err
	}
	if s.geo != nil {
		if err := s.geo.Add(ctx, id, pos); err != nil {
			s.log.Warn("geo index update failed", "captain", id, "err", err)
		}
	}
	if s.feed != nil {
		c, err := s.store.Get(ctx, id)
		status := StatusAvailable
		if err == nil {
			status = c.Status
		}
		if err := s.feed.PublishLocation(ingest.LocationEvent{
			CaptainID: id,
			Position:  pos,
			Status:    string(status),
			At:        time.Now(),
		}); err != nil {
			s.log.Warn("location feed publish failed", "captain", id, "err", err)
		}
	}
	return nil
}

func (s *Service) removeFromGeo(ctx context.Context, id types.ID) {
	if s.geo == nil {
		return
	}
	if err := s.geo.Remove(ctx, id); err != nil {
		s.log.Warn("geo index remove failed", "captain", id, "err", err)
	}
}
