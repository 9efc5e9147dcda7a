package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"talentsync/internal/app/dto"
	apptyping "talentsync/internal/app/typing"
	domainconv "talentsync/internal/domain/conversation"
	domaintyping "talentsync/internal/domain/typing"
	domainuser "talentsync/internal/domain/user"
)

// TypingHTTP exposes typing indicator endpoints. Websocket clients use the
// socket commands instead; these exist for polling clients.
type TypingHTTP interface {
	Start(c *gin.Context)
	Stop(c *gin.Context)
	Active(c *gin.Context)
}

type TypingHandler struct {
	Coordinator *apptyping.Coordinator
	Store       domaintyping.Store
	Logger      *slog.Logger
}

func (h TypingHandler) Start(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	err := h.Coordinator.Signal(c.Request.Context(), domainconv.ID(c.Param("id")), domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h TypingHandler) Stop(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	err := h.Coordinator.Stop(c.Request.Context(), domainconv.ID(c.Param("id")), domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Active lists who is typing in the conversation right now, excluding the
// caller.
func (h TypingHandler) Active(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	indicators, err := h.Store.Active(c.Request.Context(), domainconv.ID(c.Param("id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	items := make([]dto.TypingIndicator, 0, len(indicators))
	for _, ind := range indicators {
		if string(ind.UserID) == principal.ID {
			continue
		}
		items = append(items, dto.MapTypingIndicator(ind))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h TypingHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainconv.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, domainconv.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
	default:
		if h.Logger != nil {
			h.Logger.Error("typing operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ TypingHTTP = (*TypingHandler)(nil)
