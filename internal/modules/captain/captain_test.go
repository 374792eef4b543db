// README: Directory service tests over the in-memory store.
package captain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"campusride/internal/ingest"
	"campusride/internal/modules/pricing"
	"campusride/internal/types"
)

type fakeGeo struct {
	entries map[types.ID]types.Point
	failAdd bool
}

func newFakeGeo() *fakeGeo {
	return &fakeGeo{entries: make(map[types.ID]types.Point)}
}

func (f *fakeGeo) Add(_ context.Context, id types.ID, pos types.Point) error {
	if f.failAdd {
		return errors.New("geo down")
	}
	f.entries[id] = pos
	return nil
}

func (f *fakeGeo) Remove(_ context.Context, id types.ID) error {
	delete(f.entries, id)
	return nil
}

type fakeFeed struct {
	events []ingest.LocationEvent
	fail   bool
}

func (f *fakeFeed) PublishLocation(e ingest.LocationEvent) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.events = append(f.events, e)
	return nil
}

func newTestDirectory(t *testing.T) (*Service, *MemoryStore, *fakeGeo, *fakeFeed) {
	t.Helper()
	store := NewMemoryStore()
	store.Put(Captain{ID: "cap1", VehicleClass: pricing.ClassCar, Status: StatusOffline})
	geo := newFakeGeo()
	feed := &fakeFeed{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, geo, feed, log), store, geo, feed
}

func TestConnectBindsChannel(t *testing.T) {
	svc, store, _, _ := newTestDirectory(t)
	ctx := context.Background()

	if err := svc.Connect(ctx, "cap1", "h1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	c, err := store.Get(ctx, "cap1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Channel != "h1" || c.Status != StatusAvailable {
		t.Fatalf("after connect: %+v", c)
	}
	if !c.Reachable() {
		t.Fatal("connected captain must be reachable")
	}

	// Reconnect overwrites the stale handle.
	if err := svc.Connect(ctx, "cap1", "h2"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	c, _ = store.Get(ctx, "cap1")
	if c.Channel != "h2" {
		t.Fatalf("channel = %q, want h2", c.Channel)
	}
}

func TestConnectUnknownCaptain(t *testing.T) {
	svc, _, _, _ := newTestDirectory(t)
	if err := svc.Connect(context.Background(), "ghost", "h1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDisconnectClearsChannelAndGeo(t *testing.T) {
	svc, store, geo, _ := newTestDirectory(t)
	ctx := context.Background()
	if err := svc.Connect(ctx, "cap1", "h1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := svc.UpdateLocation(ctx, "cap1", types.Point{Lat: 28.5, Lng: 77.2}); err != nil {
		t.Fatalf("location: %v", err)
	}

	svc.Disconnect(ctx, "h1")

	c, _ := store.Get(ctx, "cap1")
	if c.Channel != "" || c.Status != StatusOffline {
		t.Fatalf("after disconnect: %+v", c)
	}
	if _, ok := geo.entries["cap1"]; ok {
		t.Fatal("captain still in geo index after disconnect")
	}
}

func TestDisconnectUnknownHandleIsNoop(t *testing.T) {
	svc, _, _, _ := newTestDirectory(t)
	// Rider channels and already re-bound handles land here.
	svc.Disconnect(context.Background(), "never-seen")
}

func TestUpdateStatus(t *testing.T) {
	svc, store, geo, _ := newTestDirectory(t)
	ctx := context.Background()
	if err := svc.Connect(ctx, "cap1", "h1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := svc.UpdateLocation(ctx, "cap1", types.Point{Lat: 28.5, Lng: 77.2}); err != nil {
		t.Fatalf("location: %v", err)
	}

	if err := svc.UpdateStatus(ctx, "cap1", "sleeping"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("bad status err = %v", err)
	}

	if err := svc.UpdateStatus(ctx, "cap1", StatusBusy); err != nil {
		t.Fatalf("busy: %v", err)
	}
	if _, ok := geo.entries["cap1"]; !ok {
		t.Fatal("busy captain must stay in the geo index")
	}

	if err := svc.UpdateStatus(ctx, "cap1", StatusOffline); err != nil {
		t.Fatalf("offline: %v", err)
	}
	c, _ := store.Get(ctx, "cap1")
	if c.Channel != "" {
		t.Fatal("offline captain must not keep a channel")
	}
	if _, ok := geo.entries["cap1"]; ok {
		t.Fatal("offline captain must leave the geo index")
	}
}

func TestUpdateLocationFansOut(t *testing.T) {
	svc, store, geo, feed := newTestDirectory(t)
	ctx := context.Background()
	if err := svc.Connect(ctx, "cap1", "h1"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	pos := types.Point{Lat: 28.545, Lng: 77.273}
	if err := svc.UpdateLocation(ctx, "cap1", pos); err != nil {
		t.Fatalf("location: %v", err)
	}

	c, _ := store.Get(ctx, "cap1")
	if c.Location != pos {
		t.Fatalf("stored location = %+v", c.Location)
	}
	if geo.entries["cap1"] != pos {
		t.Fatalf("geo location = %+v", geo.entries["cap1"])
	}
	if len(feed.events) != 1 || feed.events[0].CaptainID != "cap1" || feed.events[0].Status != string(StatusAvailable) {
		t.Fatalf("feed events = %+v", feed.events)
	}
}

func TestUpdateLocationBestEffortSides(t *testing.T) {
	store := NewMemoryStore()
	store.Put(Captain{ID: "cap1", Status: StatusAvailable})
	geo := newFakeGeo()
	geo.failAdd = true
	feed := &fakeFeed{fail: true}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, geo, feed, log)

	// Geo and feed failures never fail the directory write.
	if err := svc.UpdateLocation(context.Background(), "cap1", types.Point{Lat: 1, Lng: 2}); err != nil {
		t.Fatalf("location: %v", err)
	}
}

func TestUpdateLocationUnknownCaptain(t *testing.T) {
	svc, _, _, _ := newTestDirectory(t)
	if err := svc.UpdateLocation(context.Background(), "ghost", types.Point{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
