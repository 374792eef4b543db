// README: Websocket endpoint; auth handshake and inbound event routing.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"campusride/internal/auth"
	"campusride/internal/modules/captain"
	"campusride/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checking belongs to the reverse proxy in this deployment.
	CheckOrigin: func(*http.Request) bool { return true },
}

// TokenVerifier validates the first-message credential.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// CaptainDirectory is the slice of the captain service the channel
// layer drives: channel binding plus live status and position updates.
type CaptainDirectory interface {
	Connect(ctx context.Context, id types.ID, handle string) error
	Disconnect(ctx context.Context, handle string)
	UpdateStatus(ctx context.Context, id types.ID, status captain.Status) error
	UpdateLocation(ctx context.Context, id types.ID, pos types.Point) error
}

// Service serves websocket sessions on top of the hub. The client must
// authenticate with its first message within five seconds or the
// connection is dropped.
type Service struct {
	hub      *Hub
	verifier TokenVerifier
	captains CaptainDirectory
	log      *slog.Logger

	onCaptainOnline func(ctx context.Context, captainID types.ID)
}

func NewService(hub *Hub, verifier TokenVerifier, captains CaptainDirectory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{hub: hub, verifier: verifier, captains: captains, log: log}
}

// SetCaptainOnlineHook registers a callback invoked after a captain's
// channel comes online. The wiring layer uses it to push the current
// open-request snapshot to the captains group.
func (s *Service) SetCaptainOnlineHook(fn func(ctx context.Context, captainID types.ID)) {
	s.onCaptainOnline = fn
}

func (s *Service) Hub() *Hub {
	return s.hub
}

func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	var hello struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth required"))
		_ = conn.Close()
		return
	}
	id, err := s.verifier.Verify(hello.Token)
	if err != nil {
		_ = conn.WriteJSON(Envelope{Event: "error", Data: "invalid token"})
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	c := &Client{
		Handle:  fmt.Sprintf("ch_%s_%d", id.Subject, time.Now().UnixNano()),
		Subject: id.Subject,
		Role:    id.Role,
		conn:    conn,
		send:    make(chan []byte, 64),
		hub:     s.hub,
		log:     s.log,
	}

	if id.Role == auth.RoleCaptain {
		if err := s.captains.Connect(r.Context(), id.Subject, c.Handle); err != nil {
			s.log.Error("captain channel bind failed", "captain", id.Subject, "err", err)
			_ = conn.WriteJSON(Envelope{Event: "error", Data: "connect failed"})
			_ = conn.Close()
			return
		}
	}

	s.hub.register <- c
	_ = conn.WriteJSON(Envelope{Event: "connected", Data: map[string]string{"handle": c.Handle}})

	go c.writePump()
	go c.readPump(s.handleMessage, s.handleClose)

	if id.Role == auth.RoleCaptain && s.onCaptainOnline != nil {
		hctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.onCaptainOnline(hctx, id.Subject)
		cancel()
	}
}

func (s *Service) handleClose(c *Client) {
	if c.Role != auth.RoleCaptain {
		return
	}
	// The request context is long gone by the time the pump exits.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.captains.Disconnect(ctx, c.Handle)
}

func (s *Service) handleMessage(c *Client, msg inbound) {
	if c.Role != auth.RoleCaptain {
		s.log.Warn("ignoring channel event from rider", "event", msg.Event, "subject", c.Subject)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Event {
	case "update-location":
		var body struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			s.log.Warn("bad update-location payload", "subject", c.Subject, "err", err)
			return
		}
		if err := s.captains.UpdateLocation(ctx, c.Subject, types.Point{Lat: body.Lat, Lng: body.Lng}); err != nil {
			s.log.Error("location update failed", "captain", c.Subject, "err", err)
		}
	case "update-availability":
		var body struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			s.log.Warn("bad update-availability payload", "subject", c.Subject, "err", err)
			return
		}
		if err := s.captains.UpdateStatus(ctx, c.Subject, captain.Status(body.Status)); err != nil {
			s.log.Error("availability update failed", "captain", c.Subject, "err", err)
		}
	default:
		s.log.Warn("unknown channel event", "event", msg.Event, "subject", c.Subject)
	}
}
