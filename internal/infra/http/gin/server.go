package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"talentsync/internal/infra/config"
	"talentsync/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Conversation   ConversationHTTP
	Message        MessageHTTP
	Typing         TypingHTTP
	Profile        ProfileHTTP
	Notification   NotificationHTTP
	Upload         UploadHTTP
	Feed           FeedHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Conversation != nil {
		api.GET("/conversations", h.Conversation.List)
		api.POST("/conversations", h.Conversation.GetOrCreate)
		api.GET("/conversations/:id", h.Conversation.Get)
		api.POST("/conversations/:id/read", h.Conversation.MarkRead)
		api.POST("/conversations/:id/unread", h.Conversation.MarkUnread)
		api.POST("/conversations/:id/archive", h.Conversation.Archive)
		api.POST("/conversations/:id/unarchive", h.Conversation.Unarchive)
	}
	if h.Message != nil {
		api.GET("/conversations/:id/messages", h.Message.List)
		api.POST("/conversations/:id/messages", h.Message.Send)
		api.PATCH("/conversations/:id/messages/:messageId", h.Message.Edit)
		api.DELETE("/conversations/:id/messages/:messageId", h.Message.Delete)
	}
	if h.Typing != nil {
		api.POST("/conversations/:id/typing", h.Typing.Start)
		api.DELETE("/conversations/:id/typing", h.Typing.Stop)
		api.GET("/conversations/:id/typing", h.Typing.Active)
	}
	if h.Upload != nil {
		api.POST("/conversations/:id/attachments", h.Upload.UploadAttachment)
	}
	if h.Profile != nil {
		api.GET("/profiles/:userId", h.Profile.Get)
		api.PUT("/profiles/me", h.Profile.UpdateMine)
	}
	if h.Notification != nil {
		api.GET("/notifications", h.Notification.List)
		api.POST("/notifications/:id/read", h.Notification.MarkRead)
		api.GET("/admin/notification-preferences", h.Notification.ListPreferences)
		api.PUT("/admin/notification-preferences", h.Notification.SetPreference)
	}
	if h.Feed != nil {
		api.GET("/feed", h.Feed.Stream)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
