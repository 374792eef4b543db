// README: One websocket session; read and write pumps.
package presence

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"campusride/internal/types"
)

const (
	authTimeout    = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
)

// Client is a single authenticated channel session.
type Client struct {
	Handle  string
	Subject types.ID
	Role    string

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	log  *slog.Logger
}

// inbound is the wire shape of every client-to-server message.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// readPump drains client messages until the connection dies, then
// unregisters the session. onMessage and onClose come from the serve
// layer so the hub stays transport-only.
func (c *Client) readPump(onMessage func(*Client, inbound), onClose func(*Client)) {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
		if onClose != nil {
			onClose(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("channel read failed", "handle", c.Handle, "err", err)
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn("unparseable channel message", "handle", c.Handle, "err", err)
			continue
		}
		if onMessage != nil {
			onMessage(c, msg)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
