package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"talentsync/internal/infra/ws"
)

// FeedHTTP upgrades authenticated clients to the live change feed.
type FeedHTTP interface {
	Stream(c *gin.Context)
}

type FeedHandler struct {
	Hub    *ws.Hub
	Logger *slog.Logger
}

func (h FeedHandler) Stream(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed unavailable"})
		return
	}
	if err := h.Hub.Serve(c.Writer, c.Request, principal.ID); err != nil && h.Logger != nil {
		h.Logger.Debug("websocket upgrade failed", "user_id", principal.ID, "error", err)
	}
}

var _ FeedHTTP = (*FeedHandler)(nil)
