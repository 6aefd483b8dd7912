package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentor_chat/internal/config"
	"mentor_chat/internal/service"
	apperrors "mentor_chat/pkg/errors"
	"mentor_chat/pkg/jwt"
	"mentor_chat/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	auth := NewAuthMiddleware(service.NewAuthService(config.JWTConfig{AccessSecret: "secret"}, logger.Nop()), logger.Nop())

	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter(t)
	token, err := jwt.GenerateAccessToken("u1", "ada", "secret", time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"malformed", "Token " + token, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer not-a-jwt", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
			}
		})
	}
}

type countingLimiter struct {
	hits map[string]int
}

func (l *countingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.hits[key]++
	return l.hits[key] <= limit, nil
}

func TestRateLimitPerUser(t *testing.T) {
	limiter := &countingLimiter{hits: map[string]int{}}
	m := NewRateLimitMiddleware(limiter, logger.Nop())

	r := gin.New()
	r.POST("/messages", func(c *gin.Context) {
		c.Set(ContextKeyUserID, c.GetHeader("X-User"))
		c.Next()
	}, m.Limit("send", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/messages", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusAccepted, send("u1").Code)
	w := send("u1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusAccepted, send("u2").Code)
	assert.Equal(t, 2, limiter.hits["send:u1"])
}

func TestErrorHandlerRendersAPIError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrResolutionFailed)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestErrorHandlerHidesInternalDetails(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("query mentorships: %w", errors.New("pq: relation \"mentorships\" does not exist")))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "mentorships")
	assert.Contains(t, w.Body.String(), apperrors.ErrInternalServer.Error())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSDefaultsToSameOrigin(t *testing.T) {
	for _, origins := range [][]string{nil, {"*"}} {
		r := gin.New()
		r.Use(CORS(origins))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"), "origins %v", origins)
	}
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, OriginAllowed(nil, "", "chat.example.com"))
	assert.True(t, OriginAllowed(nil, "https://chat.example.com", "chat.example.com"))
	assert.False(t, OriginAllowed(nil, "https://evil.example.com", "chat.example.com"))
	assert.True(t, OriginAllowed([]string{"https://a"}, "https://a", "chat.example.com"))
	assert.False(t, OriginAllowed([]string{"https://a"}, "https://b", "chat.example.com"))
	assert.True(t, OriginAllowed([]string{"*"}, "https://b", "chat.example.com"))
}
