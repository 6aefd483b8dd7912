package repository

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mentor_chat/internal/config"
	"mentor_chat/internal/domain"
	"mentor_chat/pkg/logger"
)

// MentorshipRepository yields the relationship records chat rooms are derived from.
type MentorshipRepository interface {
	GetMenteeRelationships(ctx context.Context, userID string) ([]domain.Relationship, error)
	GetMentorRelationships(ctx context.Context, userID string) ([]domain.Relationship, error)
}

// ChatRepository is the persisted side of the message store.
type ChatRepository interface {
	GetConversationHistory(ctx context.Context, conversationID string) ([]domain.Message, error)
}

type ProfileRepository interface {
	GetPublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error)
}

type Repositories struct {
	Mentorship MentorshipRepository
	Chat       ChatRepository
	Profile    ProfileRepository
	RateLimit  RateLimitRepository
}

// NewRepositories picks the platform data source from cfg. db may be nil when
// the source is the HTTP API.
func NewRepositories(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) (*Repositories, error) {
	repos := &Repositories{
		RateLimit: NewRateLimitRepository(rdb, log),
	}

	var profiles ProfileRepository
	switch cfg.Platform.Source {
	case config.PlatformSourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres platform source requires a database pool")
		}
		repos.Mentorship = NewMentorshipRepository(db, log)
		repos.Chat = NewChatRepository(db, log)
		profiles = NewProfileRepository(db, log)
		log.Info("Platform repositories initialized", "source", cfg.Platform.Source)
	default:
		api := NewPlatformAPI(cfg.Platform.BaseURL, &http.Client{Timeout: cfg.Platform.RequestTimeout}, log)
		repos.Mentorship = api
		repos.Chat = api
		profiles = api
		log.Info("Platform repositories initialized", "source", cfg.Platform.Source, "base_url", cfg.Platform.BaseURL)
	}

	repos.Profile = NewCachedProfileRepository(profiles, rdb, cfg.Chat.ProfileCacheTTL, log)

	return repos, nil
}

type credentialKey struct{}

// WithCredential attaches the caller's bearer token for outbound platform calls.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

func CredentialFromContext(ctx context.Context) (string, bool) {
	credential, ok := ctx.Value(credentialKey{}).(string)
	return credential, ok && credential != ""
}
