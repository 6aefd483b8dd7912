package handler

import (
	"github.com/gin-gonic/gin"

	"mentor_chat/internal/config"
	"mentor_chat/internal/middleware"
	"mentor_chat/pkg/logger"
)

func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		chat := v1.Group("/chat")
		{
			chat.POST("/session", handlers.Chat.StartSession)
			chat.GET("/session", handlers.Chat.GetSession)
			chat.DELETE("/session", handlers.Chat.EndSession)

			chat.GET("/rooms", handlers.Chat.ListRooms)
			chat.GET("/rooms/:id/messages", handlers.Chat.GetMessages)
			chat.POST("/rooms/:id/history", handlers.Chat.ReloadHistory)
			chat.POST("/rooms/:id/select", handlers.Chat.SelectRoom)
			chat.POST("/mentorships/:id/open", handlers.Chat.OpenMentorship)
			chat.GET("/notices", handlers.Chat.ListNotices)

			chat.POST("/messages",
				rateLimitMiddleware.Limit("send", cfg.Chat.SendLimit, cfg.Chat.SendWindow),
				handlers.Chat.SendMessage)
		}
	}

	ws := router.Group("/ws")
	ws.Use(authMiddleware.RequireAuth())
	ws.GET("/chat", handlers.WebSocket.HandleChat)

	return router
}
