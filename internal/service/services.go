package service

import (
	"mentor_chat/internal/config"
	"mentor_chat/internal/realtime"
	"mentor_chat/internal/repository"
	"mentor_chat/internal/retry"
	"mentor_chat/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Chat      ChatService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	resolver := NewRoomResolver(repos.Mentorship, repos.Profile, cfg.Chat.HistoryConcurrency, log)
	history := NewHistoryLoader(repos.Chat, cfg.Chat.HistoryConcurrency, log)

	transportCfg := realtime.Config{
		URL:         cfg.Transport.URL,
		DialTimeout: cfg.Transport.DialTimeout,
		WriteWait:   cfg.Transport.WriteWait,
		PongWait:    cfg.Transport.PongWait,
	}
	newTransport := func() LiveTransport {
		return realtime.NewClient(transportCfg, log)
	}

	opts := SessionOptions{
		Retry: retry.Config{
			MaxRetries: cfg.Transport.DialRetries,
			BaseDelay:  cfg.Transport.RetryBase,
			MaxDelay:   cfg.Transport.RetryMaxWait,
			Multiplier: 2,
			Jitter:     true,
		},
		NoticeBacklog:    cfg.Chat.NoticeBacklog,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
	}

	return &Services{
		Auth:      NewAuthService(cfg.JWT, log),
		Chat:      NewChatService(resolver, history, newTransport, opts, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}
}
