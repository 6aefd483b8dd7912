package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor_chat/internal/config"
)

type HealthHandler struct {
	environment    string
	platformSource string
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		environment:    cfg.Environment,
		platformSource: cfg.Platform.Source,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"service":         "mentor-chat",
		"environment":     h.environment,
		"platform_source": h.platformSource,
	})
}
