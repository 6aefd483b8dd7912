package handler

import (
	"mentor_chat/internal/config"
	"mentor_chat/internal/service"
	"mentor_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Chat:      NewChatHandler(services.Chat, log),
		WebSocket: NewWebSocketHandler(services.Chat, cfg.Server.AllowedOrigins, cfg.Transport.WriteWait, cfg.Transport.PongWait, log),
	}
}
