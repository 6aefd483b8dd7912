package service

import (
	"context"
	"time"

	"mentor_chat/internal/repository"
	"mentor_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow counts one hit for key and reports whether it is within limit.
	// The limiter fails open when the counter store is unavailable.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	count, err := s.rateLimitRepo.Hit(ctx, key, window)
	if err != nil {
		s.log.Warn("Rate limit check failed, allowing request", "key", key, "error", err)
		return true, err
	}

	return count <= int64(limit), nil
}
