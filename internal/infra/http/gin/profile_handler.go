package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"talentsync/internal/app/dto"
	"talentsync/internal/app/profilecache"
	domainprofile "talentsync/internal/domain/profile"
	domainuser "talentsync/internal/domain/user"
)

// ProfileHTTP exposes talent profile endpoints. Reads go through the cache.
type ProfileHTTP interface {
	Get(c *gin.Context)
	UpdateMine(c *gin.Context)
}

type ProfileHandler struct {
	Cache  *profilecache.Cache
	Logger *slog.Logger
}

type updateProfileRequest struct {
	DisplayName     *string   `json:"display_name"`
	Headline        *string   `json:"headline"`
	Bio             *string   `json:"bio"`
	Skills          *[]string `json:"skills"`
	Location        *string   `json:"location"`
	AvatarURL       *string   `json:"avatar_url"`
	HourlyRateCents *int64    `json:"hourly_rate_cents"`
	Available       *bool     `json:"available"`
}

func (h ProfileHandler) Get(c *gin.Context) {
	if _, ok := requireRole(c, ""); !ok {
		return
	}
	p, err := h.Cache.Get(c.Request.Context(), domainuser.ID(c.Param("userId")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapProfile(p))
}

func (h ProfileHandler) UpdateMine(c *gin.Context) {
	principal, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	p, err := h.Cache.Update(c.Request.Context(), domainuser.ID(principal.ID), domainprofile.Patch{
		DisplayName:     req.DisplayName,
		Headline:        req.Headline,
		Bio:             req.Bio,
		Skills:          req.Skills,
		Location:        req.Location,
		AvatarURL:       req.AvatarURL,
		HourlyRateCents: req.HourlyRateCents,
		Available:       req.Available,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapProfile(p))
}

func (h ProfileHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainprofile.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, domainprofile.ErrDisplayNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("profile operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ProfileHTTP = (*ProfileHandler)(nil)
