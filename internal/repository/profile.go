package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mentor_chat/internal/domain"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

const ProfileKeyPrefix = "profile:%s"

type profileRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewProfileRepository(db *pgxpool.Pool, log logger.Logger) ProfileRepository {
	return &profileRepository{db: db, log: log}
}

func (r *profileRepository) GetPublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	query := `
		SELECT user_id::text, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(image_url, '')
		FROM user_profiles
		WHERE user_id::text = $1
	`

	profile := &domain.PublicProfile{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &profile.FirstName, &profile.LastName, &profile.ImageURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get profile", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// cachedProfileRepository keeps public profiles in Redis so that re-resolving
// rooms on reconnect does not hit the platform once per counterpart.
type cachedProfileRepository struct {
	next ProfileRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  logger.Logger
}

// NewCachedProfileRepository wraps next with a Redis cache. A nil client or
// non-positive ttl disables caching.
func NewCachedProfileRepository(next ProfileRepository, rdb *redis.Client, ttl time.Duration, log logger.Logger) ProfileRepository {
	if rdb == nil || ttl <= 0 {
		return next
	}
	return &cachedProfileRepository{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (r *cachedProfileRepository) key(userID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func (r *cachedProfileRepository) GetPublicProfile(ctx context.Context, userID string) (*domain.PublicProfile, error) {
	key := r.key(userID)

	cached, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var profile domain.PublicProfile
		if err := json.Unmarshal(cached, &profile); err == nil {
			return &profile, nil
		}
		r.log.Warn("Dropping corrupt cached profile", "user_id", userID)
		r.rdb.Del(ctx, key)
	case errors.Is(err, redis.Nil):
	default:
		r.log.Warn("Profile cache unavailable", "user_id", userID, "error", err)
	}

	profile, err := r.next.GetPublicProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return profile, nil
	}
	if err := r.rdb.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.log.Warn("Failed to cache profile", "user_id", userID, "error", err)
	}

	return profile, nil
}
