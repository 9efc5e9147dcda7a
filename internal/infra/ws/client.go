package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	appfeed "talentsync/internal/app/feed"
)

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	sub    *appfeed.Subscription
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.sub.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.hub.Logger != nil {
				c.hub.Logger.Debug("websocket read failed", "user_id", c.userID, "error", err)
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			if c.hub.Logger != nil {
				c.hub.Logger.Debug("websocket command decode failed", "user_id", c.userID, "error", err)
			}
			continue
		}
		if c.hub.OnCommand != nil {
			c.hub.OnCommand(ctx, c.userID, cmd)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)
			// Drain whatever queued up while we held the writer.
			n := len(c.sub.C)
			for i := 0; i < n; i++ {
				next, ok := <-c.sub.C
				if !ok {
					break
				}
				if extra, err := json.Marshal(next); err == nil {
					w.Write([]byte("\n"))
					w.Write(extra)
				}
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
