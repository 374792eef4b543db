// README: Redis-backed geo store tests; skipped unless CAMPUSRIDE_TEST_REDIS is set.
package matching

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"campusride/internal/types"
)

func setupRedisStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("CAMPUSRIDE_TEST_REDIS")
	if addr == "" {
		t.Skip("CAMPUSRIDE_TEST_REDIS not set; skipping redis-backed geo tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	if err := client.Del(ctx, captainGeoKey).Err(); err != nil {
		t.Fatalf("reset geo key: %v", err)
	}
	return NewStore(client)
}

func TestRedisNearbyRadius(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	near := types.Point{Lat: 28.546, Lng: 77.274} // ~150m away
	far := types.Point{Lat: 28.70, Lng: 77.40}    // ~20km away
	if err := store.Add(ctx, "c_near", near); err != nil {
		t.Fatalf("add near: %v", err)
	}
	if err := store.Add(ctx, "c_far", far); err != nil {
		t.Fatalf("add far: %v", err)
	}

	ids, err := store.Nearby(ctx, campusGate, 2)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 1 || ids[0] != "c_near" {
		t.Fatalf("ids = %v, want [c_near]", ids)
	}
}

func TestRedisAddOverwritesPosition(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, "c1", types.Point{Lat: 28.70, Lng: 77.40}); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Moving into range is a plain re-add.
	if err := store.Add(ctx, "c1", types.Point{Lat: 28.546, Lng: 77.274}); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	ids, err := store.Nearby(ctx, campusGate, 2)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 1 || ids[0] != "c1" {
		t.Fatalf("ids = %v, want [c1]", ids)
	}
}

func TestRedisRemove(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, "c1", campusGate); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Remove(ctx, "c1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, err := store.Nearby(ctx, campusGate, 5)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v, want empty", ids)
	}
}
