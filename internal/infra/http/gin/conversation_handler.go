package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"talentsync/internal/app/conversations"
	"talentsync/internal/app/dto"
	domainconv "talentsync/internal/domain/conversation"
	domainuser "talentsync/internal/domain/user"
)

// ConversationHTTP exposes conversation endpoints.
type ConversationHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	GetOrCreate(c *gin.Context)
	MarkRead(c *gin.Context)
	MarkUnread(c *gin.Context)
	Archive(c *gin.Context)
	Unarchive(c *gin.Context)
}

type ConversationHandler struct {
	Service *conversations.Service
	Logger  *slog.Logger
}

type createConversationRequest struct {
	BusinessID        string `json:"business_id"`
	TalentID          string `json:"talent_id"`
	RelatedEntityType string `json:"related_entity_type"`
	RelatedEntityID   string `json:"related_entity_id"`
}

func (h ConversationHandler) List(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	list, err := h.Service.ListForUser(c.Request.Context(), domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	collection := dto.ConversationList{Items: make([]dto.Conversation, 0, len(list))}
	for _, conv := range list {
		collection.Items = append(collection.Items, dto.MapConversation(conv, domainuser.ID(principal.ID)))
	}
	c.JSON(http.StatusOK, collection)
}

func (h ConversationHandler) Get(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	conv, err := h.Service.Get(c.Request.Context(), domainconv.ID(c.Param("id")), domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conv, domainuser.ID(principal.ID)))
}

// GetOrCreate returns the existing thread for the participant pair and
// related entity, or creates it. Retrying the call never produces a second
// thread.
func (h ConversationHandler) GetOrCreate(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	params := conversations.CreateParams{
		BusinessID: domainuser.ID(strings.TrimSpace(req.BusinessID)),
		TalentID:   domainuser.ID(strings.TrimSpace(req.TalentID)),
		Relation:   domainconv.RelationType(strings.TrimSpace(req.RelatedEntityType)),
		RelationID: strings.TrimSpace(req.RelatedEntityID),
	}
	// The caller must be one of the two participants.
	if string(params.BusinessID) != principal.ID && string(params.TalentID) != principal.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	conv, err := h.Service.GetOrCreate(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conv, domainuser.ID(principal.ID)))
}

func (h ConversationHandler) MarkRead(c *gin.Context) {
	h.mutate(c, func(id domainconv.ID, userID domainuser.ID) (*domainconv.Conversation, error) {
		return h.Service.MarkRead(c.Request.Context(), id, userID)
	})
}

func (h ConversationHandler) MarkUnread(c *gin.Context) {
	h.mutate(c, func(id domainconv.ID, userID domainuser.ID) (*domainconv.Conversation, error) {
		return h.Service.MarkUnread(c.Request.Context(), id, userID)
	})
}

func (h ConversationHandler) Archive(c *gin.Context) {
	h.mutate(c, func(id domainconv.ID, userID domainuser.ID) (*domainconv.Conversation, error) {
		return h.Service.SetArchived(c.Request.Context(), id, userID, true)
	})
}

func (h ConversationHandler) Unarchive(c *gin.Context) {
	h.mutate(c, func(id domainconv.ID, userID domainuser.ID) (*domainconv.Conversation, error) {
		return h.Service.SetArchived(c.Request.Context(), id, userID, false)
	})
}

func (h ConversationHandler) mutate(c *gin.Context, fn func(domainconv.ID, domainuser.ID) (*domainconv.Conversation, error)) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	conv, err := fn(domainconv.ID(c.Param("id")), domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conv, domainuser.ID(principal.ID)))
}

func (h ConversationHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainconv.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, domainconv.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
	case errors.Is(err, domainconv.ErrParticipantsRequired),
		errors.Is(err, domainconv.ErrSameParticipant),
		errors.Is(err, domainconv.ErrInvalidRelation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("conversation operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ConversationHTTP = (*ConversationHandler)(nil)
