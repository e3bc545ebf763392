package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/dto"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/feeds"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/util"
)

const (
	hallClientAppURL = "#"
	hallReferrer     = "miguyouxidating"
	shareComments    = 10
	shareHotVideos   = 10
)

// VideoCategories lists the editorial categories holding videos of a game
// GET /videos/categories
func (h *Handlers) VideoCategories(c *gin.Context) {
	gid := param(c, "game_id")
	if gid == "" {
		util.RespondInvalidArguments(c, "game_id", "game_id is required")
		return
	}
	counts, err := h.editorial.CategoriesForGame(c.Request.Context(), gid)
	if err != nil {
		util.RespondInternalError(c, "Failed to load categories")
		return
	}
	out := make([]*dto.VideoCategoryResponse, 0, len(counts))
	for _, cc := range counts {
		out = append(out, dto.ToVideoCategoryResponse(cc.Category, cc.Count))
	}
	util.RespondOK(c, gin.H{"categories": out})
}

// CategoryVideos pages the videos an editor placed in a category for a game
// GET /videos/category_videos
func (h *Handlers) CategoryVideos(c *gin.Context) {
	q := repository.CategoryQuery{Category: param(c, "category_id"), Game: param(c, "game_id")}
	if q.Category == "" || q.Game == "" {
		util.RespondInvalidArguments(c, "", "category_id and game_id are required")
		return
	}
	videoPage(h, c, h.feeds.CategoryVideos, q, h.feeds.VideoFilter(feeds.CategoryVideos), impersonal, nil)
}

// VideoTopics lists the topics that hold at least one video
// GET /videos/topics
func (h *Handlers) VideoTopics(c *gin.Context) {
	counts, err := h.editorial.Topics(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Failed to load topics")
		return
	}
	out := make([]*dto.TopicResponse, 0, len(counts))
	for _, tc := range counts {
		if tc.Count > 0 {
			out = append(out, dto.ToTopicResponse(tc.Topic, tc.Count))
		}
	}
	util.RespondOK(c, gin.H{"topics": out})
}

// TopicVideos pages a topic's videos in the order they joined it
// GET /videos/topic_videos
func (h *Handlers) TopicVideos(c *gin.Context) {
	tid := param(c, "topic_id")
	if tid == "" {
		util.RespondInvalidArguments(c, "topic_id", "topic_id is required")
		return
	}
	topic, err := h.editorial.GetTopic(c.Request.Context(), tid)
	if util.HandleDBError(c, err, "topic") {
		return
	}
	extra := gin.H{"topic": dto.ToTopicResponse(topic, 0)}
	videoPage(h, c, h.feeds.TopicVideos, topic.ID, h.feeds.VideoFilter(feeds.TopicVideos), impersonal, extra)
}

// EditorVideos returns the editor picks in display order
// GET /videos/editor_videos
func (h *Handlers) EditorVideos(c *gin.Context) {
	ctx := c.Request.Context()
	ids, err := h.editorial.EditorPickIDs(ctx)
	if err != nil {
		util.RespondInternalError(c, "Failed to load editor picks")
		return
	}
	videos, err := h.videos.ListOrdered(ctx, ids)
	if err != nil {
		util.RespondInternalError(c, "Failed to load videos")
		return
	}
	resp, err := h.renderVideos(ctx, videos, util.CurrentUserID(c), impersonal)
	if err != nil {
		util.RespondInternalError(c, "Failed to load videos")
		return
	}
	util.RespondOK(c, gin.H{"videos": resp})
}

// ShareVideo returns what the share page shows: the video, its first comments,
// the game's most viewed videos and where to get the game and the app.
// GET /share/video/:vid
func (h *Handlers) ShareVideo(c *gin.Context) {
	ctx := c.Request.Context()
	video, found, err := h.videos.Get(ctx, c.Param("vid"))
	if err != nil {
		util.RespondInternalError(c, "Failed to fetch video")
		return
	}
	if !found {
		util.RespondNotFound(c, "video")
		return
	}

	comments, err := h.feeds.Comments.Fetch(ctx, feed.Request[string]{
		PageSize: shareComments,
		Cursor:   feed.PageCursor(1),
		Params:   video.ID,
	}, nil)
	if err != nil {
		respondFeedError(c, err)
		return
	}
	hot, err := h.feeds.GamePopular.Fetch(ctx, feed.Request[repository.VideoQuery]{
		PageSize: shareHotVideos,
		Cursor:   feed.PageCursor(1),
		Params:   repository.VideoQuery{Game: video.Game},
	}, h.feeds.VideoFilter(feeds.GamePopular))
	if err != nil {
		respondFeedError(c, err)
		return
	}

	all := append([]*models.Video{video}, hot.Values()...)
	rendered, err := h.renderVideos(ctx, all, "", impersonal)
	if err != nil {
		util.RespondInternalError(c, "Failed to load videos")
		return
	}
	commentResp, err := h.renderComments(ctx, comments.Values())
	if err != nil {
		util.RespondInternalError(c, "Failed to load comments")
		return
	}

	gameURL, appURL := "", h.opts.AppDownloadURL
	if rendered[0].Game != nil {
		gameURL = rendered[0].Game.URL
	}
	if param(c, "ywfrom") == hallReferrer {
		gameURL, appURL = h.opts.HallGameURL, hallClientAppURL
	}

	util.RespondOK(c, gin.H{
		"video":      rendered[0],
		"hot_videos": rendered[1:],
		"comments":   commentResp,
		"game_url":   gameURL,
		"app_url":    appURL,
	})
}
