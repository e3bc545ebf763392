package handlers

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/dto"
	"github.com/wanxtv/wanx/backend/internal/errors"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/migu"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// param reads a request value from the query string or the form body.
func param(c *gin.Context, key string) string {
	v, _ := lookup(c, key)
	return strings.TrimSpace(v)
}

func lookup(c *gin.Context, key string) (string, bool) {
	if v, ok := c.GetQuery(key); ok {
		return v, true
	}
	return c.GetPostForm(key)
}

// feedRequest parses maxs, after, page and nbr. It responds 400 and returns false on bad input.
func (h *Handlers) feedRequest(c *gin.Context) (feed.Cursor, int, bool) {
	maxs, hasMaxs := lookup(c, "maxs")
	cursor, err := feed.ParseCursor(maxs, hasMaxs, param(c, "page"), param(c, "after"))
	if err != nil {
		util.RespondInvalidArguments(c, "maxs", err.Error())
		return feed.Cursor{}, 0, false
	}
	size, err := feed.ParsePageSize(param(c, "nbr"), h.opts.DefaultPageSize, h.opts.MaxPageSize)
	if err != nil {
		util.RespondInvalidArguments(c, "nbr", err.Error())
		return feed.Cursor{}, 0, false
	}
	return cursor, size, true
}

// respondFeedError maps a fetch failure: bad pagination is 400, a failed source or
// lookup is 503 and no partial page is sent.
func respondFeedError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, feed.ErrInvalidRequest):
		util.RespondInvalidArguments(c, "", err.Error())
	case stderrors.Is(err, feed.ErrSourceUnavailable):
		util.RespondWithAPIError(c, errors.ServiceUnavailable("feed"))
	default:
		util.RespondInternalError(c, "Failed to load feed")
	}
}

// personalize selects the per-viewer flags rendered on videos.
type personalize struct {
	liked   bool
	favored bool
}

var (
	impersonal = personalize{}
	withLiked  = personalize{liked: true}
	withAll    = personalize{liked: true, favored: true}
)

// renderVideos loads authors, games and the viewer's flags for a batch of videos.
func (h *Handlers) renderVideos(ctx context.Context, videos []*models.Video, viewerID string, p personalize) ([]*dto.VideoResponse, error) {
	authorIDs := make([]string, 0, len(videos))
	gameIDs := make([]string, 0, len(videos))
	videoIDs := make([]string, 0, len(videos))
	for _, v := range videos {
		authorIDs = append(authorIDs, v.Author)
		gameIDs = append(gameIDs, v.Game)
		videoIDs = append(videoIDs, v.ID)
	}

	var refs dto.VideoRefs
	var err error
	if refs.Authors, err = h.users.GetMany(ctx, authorIDs); err != nil {
		return nil, err
	}
	if refs.Games, err = h.games.GetMany(ctx, gameIDs); err != nil {
		return nil, err
	}
	if viewerID != "" && p.liked {
		if refs.Liked, err = h.relations.LikeSet(ctx, viewerID, videoIDs); err != nil {
			return nil, err
		}
	}
	if viewerID != "" && p.favored {
		if refs.Favored, err = h.relations.FavoriteSet(ctx, viewerID, videoIDs); err != nil {
			return nil, err
		}
	}
	return dto.ToVideoResponses(videos, refs), nil
}

func (h *Handlers) renderVideo(ctx context.Context, v *models.Video, viewerID string, p personalize) (*dto.VideoResponse, error) {
	out, err := h.renderVideos(ctx, []*models.Video{v}, viewerID, p)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// renderComments loads the authors of a batch of comments.
func (h *Handlers) renderComments(ctx context.Context, comments []*models.Comment) ([]*dto.CommentResponse, error) {
	ids := make([]string, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.Author)
	}
	authors, err := h.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	return dto.ToCommentResponses(comments, authors), nil
}

// videoPage runs one video feed request and writes the standard page body.
// extra keys are merged into the response.
func videoPage[P any](h *Handlers, c *gin.Context, f *feed.Fetcher[P, *models.Video], params P, filter feed.Filter[*models.Video], p personalize, extra gin.H) {
	cursor, size, ok := h.feedRequest(c)
	if !ok {
		return
	}
	serveVideoPage(h, c, f, feed.Request[P]{PageSize: size, Cursor: cursor, Params: params}, filter, p, extra)
}

func serveVideoPage[P any](h *Handlers, c *gin.Context, f *feed.Fetcher[P, *models.Video], req feed.Request[P], filter feed.Filter[*models.Video], p personalize, extra gin.H) {
	ctx := c.Request.Context()
	page, err := f.Fetch(ctx, req, filter)
	if err != nil {
		respondFeedError(c, err)
		return
	}
	videos, err := h.renderVideos(ctx, page.Values(), util.CurrentUserID(c), p)
	if err != nil {
		util.RespondInternalError(c, "Failed to load videos")
		return
	}

	body := dto.FeedResponse("videos", videos, page.EndOfData, req.Cursor, page.NextCursor)
	for k, v := range extra {
		body[k] = v
	}
	util.RespondOK(c, body)
}

// respondMigu maps a Migu client error onto an API error.
func respondMigu(c *gin.Context, err error) {
	if apiErr, ok := migu.IsAPIError(err); ok && apiErr.StatusCode < 500 {
		util.RespondWithAPIError(c, errors.InvalidArguments("", apiErr.Message).WithDetails("migu:"+apiErr.Code))
		return
	}
	switch {
	case stderrors.Is(err, migu.ErrUnavailable):
		util.RespondWithAPIError(c, errors.ServiceUnavailable("migu"))
	case stderrors.Is(err, context.DeadlineExceeded):
		util.RespondWithAPIError(c, errors.Timeout("migu"))
	default:
		logger.Log.Error("Migu call failed", logger.WithRequestID(c.GetString("request_id")), zap.Error(err))
		util.RespondWithAPIError(c, errors.Upstream("migu", "partner platform error"))
	}
}

// withLock runs fn while holding key. A held lock answers OPERATION_IN_PROGRESS.
func (h *Handlers) withLock(c *gin.Context, key, operation string, fn func()) {
	unlock, acquired, err := h.locker.TryLock(c.Request.Context(), key)
	if err != nil {
		logger.Log.Error("Lock failed", zap.String("key", key), zap.Error(err))
		util.RespondInternalError(c, "Failed to "+operation)
		return
	}
	if !acquired {
		util.RespondWithAPIError(c, errors.OperationInProgress(operation))
		return
	}
	defer unlock()
	fn()
}
