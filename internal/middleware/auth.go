package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"mentor_chat/internal/domain"
	"mentor_chat/internal/service"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

const (
	ContextKeyIdentity = "identity"
	ContextKeyUserID   = "user_id"
)

type AuthMiddleware struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthMiddleware(authService service.AuthService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		log:         log,
	}
}

// RequireAuth accepts "Authorization: Bearer <token>", or a token query
// parameter for websocket upgrades where browsers cannot set headers.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortWithError(c, err)
			return
		}

		identity, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			m.log.Debug("Rejected request", "path", c.Request.URL.Path, "error", err)
			abortWithError(c, err)
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Set(ContextKeyUserID, identity.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", apperrors.ErrNoCredential
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.ErrInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext returns the caller set by RequireAuth.
func IdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

func abortWithError(c *gin.Context, err error) {
	apiErr := apperrors.FromError(err)
	c.AbortWithStatusJSON(apiErr.Code, apiErr)
}
