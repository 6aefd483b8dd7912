package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor_chat/pkg/errors"
	"mentor_chat/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error. The
// full error of a server-side failure is logged, the client gets the public message.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		apiErr := errors.FromError(err)
		if apiErr.Code >= http.StatusInternalServerError {
			log.Error("Request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", apiErr.Code,
				"error", err,
			)
		}
		c.JSON(apiErr.Code, apiErr)
	}
}
