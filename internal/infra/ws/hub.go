// Package ws bridges websocket connections to the change feed. Each
// connection gets a feed subscription filtered to its user; the write pump
// streams matching events down, the read pump accepts lightweight client
// commands (typing signals, table filters are fixed at connect time).
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	appfeed "talentsync/internal/app/feed"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Command is a client-to-server instruction sent over the socket.
type Command struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id,omitempty"`
}

const (
	ActionTypingStart = "typing.start"
	ActionTypingStop  = "typing.stop"
)

type CommandHandler func(ctx context.Context, userID string, cmd Command)

type Hub struct {
	Feed      appfeed.Bus
	Logger    *slog.Logger
	OnCommand CommandHandler

	Upgrader websocket.Upgrader
}

func NewHub(feed appfeed.Bus, logger *slog.Logger, onCommand CommandHandler) *Hub {
	return &Hub{
		Feed:      feed,
		Logger:    logger,
		OnCommand: onCommand,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Token auth happens before the upgrade; cross-origin browser
			// clients are expected.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and pumps feed events for the user until the
// connection drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sub := h.Feed.Subscribe(appfeed.Filter{UserID: userID})
	c := &client{
		hub:    h,
		conn:   conn,
		userID: userID,
		sub:    sub,
	}
	go c.writePump()
	c.readPump(r.Context())
	return nil
}
