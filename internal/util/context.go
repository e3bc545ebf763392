package util

import (
	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/models"
)

const (
	userKey   = "user"
	userIDKey = "user_id"
)

// SetUser stores the authenticated user on the request
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set(userIDKey, user.ID)
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CurrentUserID returns the authenticated user's id, or "" for anonymous requests.
func CurrentUserID(c *gin.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it responds with 401 Unauthorized.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user := CurrentUser(c)
	if user == nil {
		RespondUnauthorized(c, "login required")
		return nil, false
	}
	return user, true
}
