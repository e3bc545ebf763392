package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/metrics"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// GetVideo returns a video in any status
// GET /videos/:vid, GET /migu/videos/:vid
func (h *Handlers) GetVideo(c *gin.Context) {
	ctx := c.Request.Context()
	video, err := h.videos.GetAny(ctx, c.Param("vid"))
	if util.HandleDBError(c, err, "video") {
		return
	}
	resp, err := h.renderVideo(ctx, video, util.CurrentUserID(c), withAll)
	if err != nil {
		util.RespondInternalError(c, "Failed to load video")
		return
	}
	util.RespondOK(c, gin.H{"video": resp})
}

// GetVideoByEventID returns the newest online video recorded from a live event
// GET /videos/event_id
func (h *Handlers) GetVideoByEventID(c *gin.Context) {
	eventID := param(c, "event_id")
	if eventID == "" {
		util.RespondInvalidArguments(c, "event_id", "event_id is required")
		return
	}
	ctx := c.Request.Context()
	video, err := h.videos.GetByEventID(ctx, eventID)
	if util.HandleDBError(c, err, "video") {
		return
	}
	resp, err := h.renderVideo(ctx, video, util.CurrentUserID(c), withAll)
	if err != nil {
		util.RespondInternalError(c, "Failed to load video")
		return
	}
	util.RespondOK(c, gin.H{"video": resp})
}

// CreateVideo registers a video before its file is uploaded
// POST /videos/new-video
func (h *Handlers) CreateVideo(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	gameID := param(c, "game_id")
	title := param(c, "title")
	if gameID == "" {
		util.RespondInvalidArguments(c, "game_id", "game_id is required")
		return
	}
	if title == "" {
		util.RespondInvalidArguments(c, "title", "title is required")
		return
	}
	duration, err := util.ParseIntParam(param(c, "duration"))
	if err != nil || duration < 0 {
		util.RespondInvalidArguments(c, "duration", "duration must be a non-negative integer")
		return
	}
	if h.words.Blocked(title) {
		util.RespondInvalidContent(c, "title")
		return
	}

	ctx := c.Request.Context()
	game, err := h.games.Get(ctx, gameID)
	if util.HandleDBError(c, err, "game") {
		return
	}

	video := &models.Video{
		Author:   user.ID,
		Game:     game.ID,
		Title:    title,
		Duration: duration,
		Ratio:    param(c, "ratio"),
		EventID:  param(c, "event_id"),
		Status:   models.VideoUploading,
	}
	if err := h.videos.Create(ctx, video); err != nil {
		util.HandleDBError(c, err, "video")
		return
	}
	metrics.RecordVideoEvent("create")
	logger.Log.Info("Video created",
		logger.WithVideoID(video.ID),
		logger.WithUserID(user.ID),
		zap.String("game", game.ID),
	)

	resp, err := h.renderVideo(ctx, video, user.ID, impersonal)
	if err != nil {
		util.RespondInternalError(c, "Failed to load video")
		return
	}
	util.RespondOK(c, gin.H{"video": resp})
}

// ModifyVideo changes the title of one of the caller's videos
// POST /videos/:vid/modify-video
func (h *Handlers) ModifyVideo(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	title := param(c, "title")
	if title == "" {
		util.RespondInvalidArguments(c, "title", "title is required")
		return
	}
	if h.words.Blocked(title) {
		util.RespondInvalidContent(c, "title")
		return
	}

	ctx := c.Request.Context()
	video, ok := h.ownVideo(c, user.ID)
	if !ok {
		return
	}
	video, err := h.videos.UpdateTitle(ctx, video.ID, title)
	if util.HandleDBError(c, err, "video") {
		return
	}
	resp, err := h.renderVideo(ctx, video, user.ID, impersonal)
	if err != nil {
		util.RespondInternalError(c, "Failed to load video")
		return
	}
	util.RespondOK(c, gin.H{"video": resp})
}

// UploadCallback is called by the upload service once a video file is stored.
// It puts the video online.
// POST /videos/:vid/update-video
func (h *Handlers) UploadCallback(c *gin.Context) {
	vid := c.Param("vid")
	if !util.ValidUploadSignature(vid, h.opts.UploadSecret, param(c, "upload_sig")) {
		util.RespondForbidden(c, "invalid upload signature")
		return
	}
	url := param(c, "url")
	if url == "" {
		util.RespondInvalidArguments(c, "url", "url is required")
		return
	}

	video, err := h.videos.MarkUploaded(c.Request.Context(), vid, param(c, "cover"), url)
	if util.HandleDBError(c, err, "video") {
		return
	}
	metrics.RecordVideoEvent("online")
	logger.Log.Info("Video online", logger.WithVideoID(video.ID))
	util.RespondOK(c, gin.H{"video_id": video.ID, "status": video.Status})
}

// DeleteVideo removes one of the caller's videos
// POST /videos/:vid/delete
func (h *Handlers) DeleteVideo(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	video, ok := h.ownVideo(c, user.ID)
	if !ok {
		return
	}
	if err := h.videos.Delete(c.Request.Context(), video.ID); util.HandleDBError(c, err, "video") {
		return
	}
	metrics.RecordVideoEvent("delete")
	logger.Log.Info("Video deleted", logger.WithVideoID(video.ID), logger.WithUserID(user.ID))
	util.RespondOK(c, gin.H{"video_id": video.ID})
}

// PlayVideo counts a view and redirects to the video file
// GET /videos/:vid/play
func (h *Handlers) PlayVideo(c *gin.Context) {
	ctx := c.Request.Context()
	video, err := h.videos.GetAny(ctx, c.Param("vid"))
	if util.HandleDBError(c, err, "video") {
		return
	}
	if video.URL == "" {
		util.RespondNotFound(c, "video file")
		return
	}
	if err := h.videos.IncrementViews(ctx, video.ID); err != nil {
		logger.Log.Warn("Failed to count view", logger.WithVideoID(video.ID), zap.Error(err))
	}
	metrics.RecordVideoEvent("play")
	c.Redirect(http.StatusFound, h.playURL(video.URL))
}

func (h *Handlers) playURL(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return strings.TrimRight(h.opts.CDNBaseURL, "/") + "/" + strings.TrimLeft(url, "/")
}

// ownVideo loads :vid and checks the caller wrote it.
func (h *Handlers) ownVideo(c *gin.Context, userID string) (*models.Video, bool) {
	video, err := h.videos.GetAny(c.Request.Context(), c.Param("vid"))
	if util.HandleDBError(c, err, "video") {
		return nil, false
	}
	if video.Author != userID {
		util.RespondForbidden(c, "not the author of this video")
		return nil, false
	}
	return video, true
}
