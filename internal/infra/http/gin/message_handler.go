package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"talentsync/internal/app/dto"
	"talentsync/internal/app/messages"
	domainconv "talentsync/internal/domain/conversation"
	domainmsg "talentsync/internal/domain/message"
	domainuser "talentsync/internal/domain/user"
)

// MessageHTTP exposes message endpoints.
type MessageHTTP interface {
	List(c *gin.Context)
	Send(c *gin.Context)
	Edit(c *gin.Context)
	Delete(c *gin.Context)
}

type MessageHandler struct {
	Service *messages.Service
	Logger  *slog.Logger
}

type sendMessageRequest struct {
	Body       string          `json:"body"`
	ClientID   string          `json:"client_id"`
	Attachment *dto.Attachment `json:"attachment,omitempty"`
}

type editMessageRequest struct {
	Body string `json:"body"`
}

func (h MessageHandler) List(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	convID := domainconv.ID(c.Param("id"))
	list, err := h.Service.Load(c.Request.Context(), convID, domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapMessages(list))
}

func (h MessageHandler) Send(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	params := messages.SendParams{
		ConversationID: domainconv.ID(c.Param("id")),
		SenderID:       domainuser.ID(principal.ID),
		Body:           req.Body,
		ClientID:       strings.TrimSpace(req.ClientID),
	}
	if req.Attachment != nil {
		params.Attachment = domainmsg.Attachment{
			URL:         req.Attachment.URL,
			Name:        req.Attachment.Name,
			Size:        req.Attachment.Size,
			ContentType: req.Attachment.ContentType,
		}
	}
	msg, err := h.Service.Send(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapMessage(msg))
}

func (h MessageHandler) Edit(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	msg, err := h.Service.Edit(c.Request.Context(), messages.EditParams{
		ConversationID: domainconv.ID(c.Param("id")),
		MessageID:      domainmsg.ID(c.Param("messageId")),
		UserID:         domainuser.ID(principal.ID),
		Body:           req.Body,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapMessage(msg))
}

func (h MessageHandler) Delete(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	err := h.Service.Remove(c.Request.Context(),
		domainconv.ID(c.Param("id")),
		domainmsg.ID(c.Param("messageId")),
		domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h MessageHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainconv.ErrNotFound), errors.Is(err, domainmsg.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainconv.ErrNotParticipant), errors.Is(err, domainmsg.ErrNotSender):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domainmsg.ErrEmptyBody):
		c.JSON(http.StatusBadRequest, gin.H{"error": "body or attachment is required"})
	case errors.Is(err, domainmsg.ErrEditWindowClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "edit window has closed"})
	case errors.Is(err, domainmsg.ErrDeleted):
		c.JSON(http.StatusConflict, gin.H{"error": "message deleted"})
	default:
		if h.Logger != nil {
			h.Logger.Error("message operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ MessageHTTP = (*MessageHandler)(nil)
