package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"talentsync/internal/app/dto"
	"talentsync/internal/app/notifications"
	domainnotif "talentsync/internal/domain/notification"
	domainuser "talentsync/internal/domain/user"
)

// NotificationHTTP exposes notification endpoints. Preference management is
// admin only.
type NotificationHTTP interface {
	List(c *gin.Context)
	MarkRead(c *gin.Context)
	ListPreferences(c *gin.Context)
	SetPreference(c *gin.Context)
}

type NotificationHandler struct {
	Dispatcher  *notifications.Dispatcher
	Preferences domainnotif.PreferenceStore
	Logger      *slog.Logger
}

type setPreferenceRequest struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
}

func (h NotificationHandler) List(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	list, err := h.Dispatcher.ListForUser(c.Request.Context(), domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	collection := dto.NotificationList{Items: make([]dto.Notification, 0, len(list))}
	for _, n := range list {
		collection.Items = append(collection.Items, dto.MapNotification(n))
	}
	c.JSON(http.StatusOK, collection)
}

func (h NotificationHandler) MarkRead(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	n, err := h.Dispatcher.MarkRead(c.Request.Context(), domainnotif.ID(c.Param("id")), domainuser.ID(principal.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapNotification(n))
}

func (h NotificationHandler) ListPreferences(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	prefs, err := h.Preferences.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	items := make([]gin.H, 0, len(prefs))
	for _, pref := range prefs {
		items = append(items, gin.H{
			"type":    pref.Type,
			"channel": string(pref.Channel),
			"enabled": pref.Enabled,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h NotificationHandler) SetPreference(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req setPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	channel, ok := domainnotif.ParseChannel(req.Channel)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel"})
		return
	}
	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}
	err := h.Preferences.Set(c.Request.Context(), domainnotif.ChannelPreference{
		Type:    kind,
		Channel: channel,
		Enabled: req.Enabled,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h NotificationHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainnotif.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	case errors.Is(err, domainnotif.ErrAlreadyRead):
		c.JSON(http.StatusConflict, gin.H{"error": "already read"})
	default:
		if h.Logger != nil {
			h.Logger.Error("notification operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ NotificationHTTP = (*NotificationHandler)(nil)
