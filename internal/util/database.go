package util

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"gorm.io/gorm"
)

// HandleDBError sends the response matching a repository error.
// Returns true if the error was handled (and response was sent), false otherwise
func HandleDBError(c *gin.Context, err error, resourceName string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrVideoNotFound),
		errors.Is(err, repository.ErrGameNotFound),
		errors.Is(err, repository.ErrCommentNotFound),
		errors.Is(err, repository.ErrReplyNotFound),
		errors.Is(err, repository.ErrTopicNotFound),
		errors.Is(err, repository.ErrCategoryNotFound):
		RespondNotFound(c, resourceName)
	case errors.Is(err, repository.ErrInvalidInput):
		RespondInvalidArguments(c, "", "invalid "+resourceName)
	default:
		RespondInternalError(c, "Failed to fetch "+resourceName)
	}
	return true
}
