// README: Websocket endpoint tests; auth handshake over real connections.
package presence

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"campusride/internal/auth"
	"campusride/internal/modules/captain"
	"campusride/internal/types"
)

type fakeDirectory struct {
	mu      sync.Mutex
	bound   map[types.ID]string
	cleared []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{bound: make(map[types.ID]string)}
}

func (f *fakeDirectory) Connect(_ context.Context, id types.ID, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound[id] = handle
	return nil
}

func (f *fakeDirectory) Disconnect(_ context.Context, handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, handle)
}

func (f *fakeDirectory) UpdateStatus(context.Context, types.ID, captain.Status) error {
	return nil
}

func (f *fakeDirectory) UpdateLocation(context.Context, types.ID, types.Point) error {
	return nil
}

func (f *fakeDirectory) handleFor(id types.ID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bound[id]
}

func (f *fakeDirectory) bindings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bound)
}

func newServeEnv(t *testing.T) (*Service, *fakeDirectory, *Hub, *auth.Verifier, string) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	dir := newFakeDirectory()
	verifier := auth.NewVerifier("test-secret")
	svc := NewService(hub, verifier, dir, log)

	srv := httptest.NewServer(http.HandlerFunc(svc.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return svc, dir, hub, verifier, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sessionCount(hub *Hub) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.sessions)
}

func TestServeWSRejectsForgedToken(t *testing.T) {
	_, dir, hub, _, url := newServeEnv(t)

	conn := dialWS(t, url)
	if err := conn.WriteJSON(map[string]string{"token": "forged"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read reject: %v", err)
	}
	if env.Event != "error" {
		t.Fatalf("event = %q, want error", env.Event)
	}

	// The socket is closed without ever touching the hub or directory.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.NextReader(); err == nil {
		t.Fatal("connection stayed open after rejected auth")
	}
	if sessionCount(hub) != 0 {
		t.Fatal("rejected connection was registered")
	}
	if dir.bindings() != 0 {
		t.Fatal("rejected connection bound a directory channel")
	}
}

func TestServeWSCaptainConnectAndDisconnect(t *testing.T) {
	svc, dir, hub, verifier, url := newServeEnv(t)

	var hookMu sync.Mutex
	var hooked []types.ID
	svc.SetCaptainOnlineHook(func(_ context.Context, id types.ID) {
		hookMu.Lock()
		hooked = append(hooked, id)
		hookMu.Unlock()
	})

	token, err := verifier.Sign(auth.Identity{Subject: "cap1", Role: auth.RoleCaptain})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	conn := dialWS(t, url)
	if err := conn.WriteJSON(map[string]string{"token": token}); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if env.Event != "connected" {
		t.Fatalf("event = %q, want connected", env.Event)
	}
	waitFor(t, func() bool { return hub.IsConnected("cap1") })

	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("connected payload = %+v", env.Data)
	}
	handle, _ := data["handle"].(string)
	if handle == "" || dir.handleFor("cap1") != handle {
		t.Fatalf("directory handle = %q, envelope handle = %q", dir.handleFor("cap1"), handle)
	}

	// The snapshot hook fires once the channel is online.
	waitFor(t, func() bool {
		hookMu.Lock()
		defer hookMu.Unlock()
		return len(hooked) == 1 && hooked[0] == "cap1"
	})

	_ = conn.Close()
	waitFor(t, func() bool { return !hub.IsConnected("cap1") })
	waitFor(t, func() bool {
		dir.mu.Lock()
		defer dir.mu.Unlock()
		return len(dir.cleared) == 1 && dir.cleared[0] == handle
	})
}

func TestServeWSRiderSkipsDirectoryAndHook(t *testing.T) {
	svc, dir, hub, verifier, url := newServeEnv(t)

	var hookMu sync.Mutex
	hookFired := false
	svc.SetCaptainOnlineHook(func(context.Context, types.ID) {
		hookMu.Lock()
		hookFired = true
		hookMu.Unlock()
	})

	token, err := verifier.Sign(auth.Identity{Subject: "rider1", Role: auth.RoleRider})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	conn := dialWS(t, url)
	if err := conn.WriteJSON(map[string]string{"token": token}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if env.Event != "connected" {
		t.Fatalf("event = %q, want connected", env.Event)
	}
	waitFor(t, func() bool { return hub.IsConnected("rider1") })

	if dir.bindings() != 0 {
		t.Fatal("rider connect must not bind a directory channel")
	}
	hookMu.Lock()
	defer hookMu.Unlock()
	if hookFired {
		t.Fatal("rider connect must not trigger the captain snapshot")
	}
}
