package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/dto"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/util"
)

// VideoComments pages a video's comments, newest first
// GET /videos/:vid/comments
func (h *Handlers) VideoComments(c *gin.Context) {
	h.commentPage(c, h.feeds.Comments, 0)
}

// CreateComment comments on an online video
// POST /videos/:vid/comments/submit
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	h.submitComment(c, user, param(c, "content"))
}

// submitComment checks content and the video, then stores the comment.
func (h *Handlers) submitComment(c *gin.Context, author *models.User, content string) {
	if content == "" {
		util.RespondInvalidArguments(c, "content", "content is required")
		return
	}
	if h.words.Blocked(content) {
		util.RespondInvalidContent(c, "content")
		return
	}

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

	comment := &models.Comment{Video: video.ID, Author: author.ID, Content: content}
	if err := h.comments.Create(ctx, comment); util.HandleDBError(c, err, "comment") {
		return
	}
	logger.Log.Info("Comment created", logger.WithVideoID(video.ID), logger.WithUserID(author.ID))
	util.RespondOK(c, gin.H{"comment": dto.ToCommentResponse(comment, map[string]*models.User{author.ID: author})})
}

// commentPage serves one page of a video's comments. With replies > 0 every
// comment carries its newest replies.
func (h *Handlers) commentPage(c *gin.Context, f *feed.Fetcher[string, *models.Comment], replies int) {
	cursor, size, ok := h.feedRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	req := feed.Request[string]{PageSize: size, Cursor: cursor, Params: c.Param("vid")}
	page, err := f.Fetch(ctx, req, nil)
	if err != nil {
		respondFeedError(c, err)
		return
	}

	comments := page.Values()
	out, err := h.renderComments(ctx, comments)
	if err == nil && replies > 0 {
		err = h.attachReplies(ctx, out, replies)
	}
	if err != nil {
		util.RespondInternalError(c, "Failed to load comments")
		return
	}
	util.RespondOK(c, dto.FeedResponse("comments", out, page.EndOfData, req.Cursor, page.NextCursor))
}

func (h *Handlers) attachReplies(ctx context.Context, comments []*dto.CommentResponse, n int) error {
	ids := make([]string, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.ID)
	}
	latest, err := h.comments.LatestReplies(ctx, ids, n)
	if err != nil {
		return err
	}
	var ownerIDs []string
	for _, rs := range latest {
		for _, r := range rs {
			ownerIDs = append(ownerIDs, r.Owner)
		}
	}
	owners, err := h.users.GetMany(ctx, ownerIDs)
	if err != nil {
		return err
	}
	for _, cm := range comments {
		cm.Replies = dto.ToReplyResponses(latest[cm.ID], owners)
	}
	return nil
}
