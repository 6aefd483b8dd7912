package service

import (
	"context"
	"strings"

	"mentor_chat/internal/config"
	"mentor_chat/internal/domain"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/jwt"
	"mentor_chat/pkg/logger"
)

// AuthService checks access tokens issued by the job platform. Token issuance
// lives there; this service only validates.
type AuthService interface {
	ValidateToken(ctx context.Context, tokenString string) (domain.Identity, error)
}

type authService struct {
	jwtCfg config.JWTConfig
	log    logger.Logger
}

func NewAuthService(jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		jwtCfg: jwtCfg,
		log:    log,
	}
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (domain.Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return domain.Identity{}, apperrors.ErrNoCredential
	}

	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.AccessSecret)
	if err != nil {
		s.log.Debug("Token rejected", "error", err)
		return domain.Identity{}, err
	}
	if claims.UserID == "" {
		return domain.Identity{}, apperrors.ErrInvalidToken
	}

	return domain.Identity{
		UserID:     claims.UserID,
		Username:   claims.Username,
		Credential: tokenString,
	}, nil
}
