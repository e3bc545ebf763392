package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// tokenFrom reads the user token from the "ut" parameter or a Bearer header.
func tokenFrom(c *gin.Context) string {
	if ut := c.Query("ut"); ut != "" {
		return ut
	}
	if ut := c.PostForm("ut"); ut != "" {
		return ut
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// OptionalAuth attaches the user when a valid token is present and lets anonymous
// requests through.
func (s *Service) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFrom(c); token != "" {
			if user, err := s.ValidateToken(c.Request.Context(), token); err == nil {
				util.SetUser(c, user)
			} else {
				logger.Log.Debug("Ignoring invalid user token", zap.Error(err))
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid token.
func (s *Service) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			util.RespondUnauthorized(c, "login required")
			c.Abort()
			return
		}
		user, err := s.ValidateToken(c.Request.Context(), token)
		if err != nil {
			util.RespondUnauthorized(c, "invalid token")
			c.Abort()
			return
		}
		util.SetUser(c, user)
		c.Next()
	}
}
