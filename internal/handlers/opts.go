package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/metrics"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// videoOpt is a per-user toggle on a video. apply reports whether anything changed.
type videoOpt struct {
	name  string
	apply func(ctx context.Context, userID, videoID string) (bool, error)
}

func (h *Handlers) favoriteOpt() videoOpt {
	return videoOpt{name: "favor_video", apply: h.relations.AddFavorite}
}

func (h *Handlers) unfavoriteOpt() videoOpt {
	return videoOpt{name: "unfavor_video", apply: h.relations.RemoveFavorite}
}

func (h *Handlers) likeOpt() videoOpt {
	return videoOpt{name: "like_video", apply: h.relations.AddLike}
}

func (h *Handlers) unlikeOpt() videoOpt {
	return videoOpt{name: "unlike_video", apply: h.relations.RemoveLike}
}

// FavoriteVideo saves a video to the caller's favorites
// GET|POST /user/opt/favorite-video
func (h *Handlers) FavoriteVideo(c *gin.Context) { h.runVideoOpt(c, h.favoriteOpt()) }

// UnfavoriteVideo removes a video from the caller's favorites
// GET|POST /user/opt/unfavorite-video
func (h *Handlers) UnfavoriteVideo(c *gin.Context) { h.runVideoOpt(c, h.unfavoriteOpt()) }

// LikeVideo likes a video
// GET|POST /user/opt/like-video
func (h *Handlers) LikeVideo(c *gin.Context) { h.runVideoOpt(c, h.likeOpt()) }

// UnlikeVideo withdraws a like
// GET|POST /user/opt/unlike-video
func (h *Handlers) UnlikeVideo(c *gin.Context) { h.runVideoOpt(c, h.unlikeOpt()) }

// runVideoOpt applies op once per user and video. Repeating it is a no-op.
func (h *Handlers) runVideoOpt(c *gin.Context, op videoOpt) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	vid := param(c, "video_id")
	if vid == "" {
		util.RespondInvalidArguments(c, "video_id", "video_id is required")
		return
	}

	ctx := c.Request.Context()
	video, err := h.videos.GetAny(ctx, vid)
	if util.HandleDBError(c, err, "video") {
		return
	}

	key := fmt.Sprintf("lock:%s:%s:%s", op.name, user.ID, video.ID)
	h.withLock(c, key, op.name, func() {
		changed, err := op.apply(ctx, user.ID, video.ID)
		if err != nil {
			logger.Log.Error("Video opt failed",
				zap.String("op", op.name),
				logger.WithUserID(user.ID),
				logger.WithVideoID(video.ID),
				zap.Error(err),
			)
			util.RespondInternalError(c, "Failed to "+op.name)
			return
		}
		if changed {
			metrics.RecordVideoEvent(op.name)
		}
		util.RespondOK(c, gin.H{"video_id": video.ID, "changed": changed})
	})
}
