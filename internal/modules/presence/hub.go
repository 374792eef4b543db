// README: Channel hub; tracks live websocket sessions by subject and role.
package presence

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"campusride/internal/observability"
	"campusride/internal/types"
)

// Envelope is the wire shape of every server-to-client message.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub owns every live channel session. One subject may hold several
// sessions (phone plus laptop); a send targets all of them. Lifecycle
// changes go through the register and unregister channels; senders
// only ever take the read lock.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Client

	register   chan *Client
	unregister chan *Client

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		sessions:   make(map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		log:        log,
	}
}

// Run processes session lifecycle until ctx ends. Start it once, in its
// own goroutine, before serving connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.log.Info("presence hub stopped")
			return
		case c := <-h.register:
			h.mu.Lock()
			h.sessions[c.Handle] = c
			h.mu.Unlock()
			observability.ChannelsConnected.Inc()
			h.log.Info("channel connected", "handle", c.Handle, "subject", c.Subject, "role", c.Role)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[c.Handle]; ok {
				delete(h.sessions, c.Handle)
				close(c.send)
				observability.ChannelsConnected.Dec()
			}
			h.mu.Unlock()
			h.log.Info("channel disconnected", "handle", c.Handle, "subject", c.Subject)
		}
	}
}

// SendToSubject delivers an event to every live session of one user.
// Reports whether at least one session took the message.
func (h *Hub) SendToSubject(subject types.ID, event string, data any) bool {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.log.Error("envelope marshal failed", "event", event, "err", err)
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := false
	for _, c := range h.sessions {
		if c.Subject != subject {
			continue
		}
		select {
		case c.send <- msg:
			delivered = true
		default:
			h.log.Warn("channel backlogged, dropping event", "handle", c.Handle, "event", event)
		}
	}
	return delivered
}

// BroadcastToRole delivers an event to every session of a role.
func (h *Hub) BroadcastToRole(role, event string, data any) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.log.Error("envelope marshal failed", "event", event, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessions {
		if c.Role != role {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.log.Warn("channel backlogged, dropping event", "handle", c.Handle, "event", event)
		}
	}
}

// IsConnected reports whether the subject holds any live session.
func (h *Hub) IsConnected(subject types.ID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessions {
		if c.Subject == subject {
			return true
		}
	}
	return false
}
