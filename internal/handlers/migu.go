package handlers

import (
	stderrors "errors"
	"fmt"
	"math/rand/v2"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/dto"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/feeds"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// miguCommentReplies is how many replies the Migu comment feed inlines.
const miguCommentReplies = 4

// MiguHome returns the Migu home page: every game tag with its games
// GET /migu/home/
func (h *Handlers) MiguHome(c *gin.Context) {
	ctx := c.Request.Context()
	categories, err := h.games.Categories(ctx)
	if err != nil {
		util.RespondInternalError(c, "Failed to load tags")
		return
	}
	tags := make([]*dto.TagResponse, 0, len(categories))
	for _, cat := range categories {
		ids, err := h.games.CategoryGameIDs(ctx, cat.ID)
		if err != nil {
			util.RespondInternalError(c, "Failed to load tags")
			return
		}
		games, err := h.games.GetMany(ctx, ids)
		if err != nil {
			util.RespondInternalError(c, "Failed to load games")
			return
		}
		ordered := make([]*models.Game, 0, len(ids))
		for _, id := range ids {
			ordered = append(ordered, games[id])
		}
		tags = append(tags, &dto.TagResponse{ID: cat.ID, Name: cat.Name, Games: dto.ToGameResponses(ordered)})
	}

	empty := []*dto.VideoResponse{}
	util.RespondOK(c, gin.H{
		"popular":          empty,
		"whats_new":        empty,
		"hottest_of_today": empty,
		"recommend":        empty,
		"tags":             tags,
	})
}

// MiguTags lists every game tag as {id: name}
// GET /migu/tags/home/
func (h *Handlers) MiguTags(c *gin.Context) {
	categories, err := h.games.Categories(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Failed to load tags")
		return
	}
	tags := make([]map[string]string, 0, len(categories))
	for _, cat := range categories {
		tags = append(tags, map[string]string{cat.ID: cat.Name})
	}
	util.RespondOK(c, gin.H{"tags": tags})
}

// MiguGamePopular pages the most viewed videos of a hall game
// GET /migu/games/:bid/popular/
func (h *Handlers) MiguGamePopular(c *gin.Context) {
	game, err := h.games.GetByBid(c.Request.Context(), c.Param("bid"))
	if util.HandleDBError(c, err, "game") {
		return
	}
	cursor, err := feed.ParseCursor("", false, param(c, "page"), "")
	if err != nil {
		util.RespondInvalidArguments(c, "page", err.Error())
		return
	}
	size, err := feed.ParsePageSize(param(c, "nbr"), h.opts.DefaultPageSize, h.opts.MaxPageSize)
	if err != nil {
		util.RespondInvalidArguments(c, "nbr", err.Error())
		return
	}
	req := feed.Request[repository.VideoQuery]{PageSize: size, Cursor: cursor, Params: repository.VideoQuery{Game: game.ID}}
	serveVideoPage(h, c, h.feeds.GamePopular, req, h.feeds.VideoFilter(feeds.GamePopular), impersonal, nil)
}

// MiguUserVideos pages the hall-game videos of the account bound to a Migu open id.
// game_id is a hall bid; an unknown bid is ignored.
// GET /migu/users/:openid/videos/
func (h *Handlers) MiguUserVideos(c *gin.Context) {
	ctx := c.Request.Context()
	q := repository.VideoQuery{}
	if bid := param(c, "game_id"); bid != "" {
		game, err := h.games.GetByBid(ctx, bid)
		switch {
		case err == nil:
			q.Game = game.ID
		case !stderrors.Is(err, repository.ErrGameNotFound):
			util.RespondInternalError(c, "Failed to fetch game")
			return
		}
	}
	user, err := h.users.GetByMiguOpenID(ctx, c.Param("openid"))
	if util.HandleDBError(c, err, "user") {
		return
	}
	q.Author = user.ID

	filter, ok := h.hallFilter(c, feeds.MiguUserVideos)
	if !ok {
		return
	}
	videoPage(h, c, h.feeds.MiguUserVideos, q, filter, impersonal, nil)
}

// MiguEliteVideos is the elite feed narrowed to hall games
// GET /migu/videos/elite/
func (h *Handlers) MiguEliteVideos(c *gin.Context) {
	filter, ok := h.hallFilter(c, feeds.MiguElite)
	if !ok {
		return
	}
	videoPage(h, c, h.feeds.MiguElite, repository.VideoQuery{EliteOnly: true}, filter, impersonal, nil)
}

// hallFilter loads the hall game set once per request and builds the named
// feed's filter around it.
func (h *Handlers) hallFilter(c *gin.Context, name string) (feed.Filter[*models.Video], bool) {
	hall, err := h.games.HallGameIDs(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Failed to load hall games")
		return nil, false
	}
	return h.feeds.VideoFilter(name, feeds.HallGames(hall)), true
}

// MiguCreateComment comments as a Migu user, creating the local account on
// first use
// GET|POST /migu/videos/:vid/comments/submit
func (h *Handlers) MiguCreateComment(c *gin.Context) {
	openID := param(c, "user_id")
	content := param(c, "content")
	if openID == "" || content == "" {
		util.RespondInvalidArguments(c, "", "user_id and content are required")
		return
	}
	user, err := h.users.CreatePlatformUser(c.Request.Context(), openID, "", platformName(openID))
	if err != nil {
		logger.Log.Error("Failed to create platform user", zap.String("openid", openID), zap.Error(err))
		util.HandleDBError(c, err, "user")
		return
	}
	h.submitComment(c, user, content)
}

// MiguVideoComments pages a video's comments, each with its newest replies
// GET /migu/videos/:vid/comments/
func (h *Handlers) MiguVideoComments(c *gin.Context) {
	h.commentPage(c, h.feeds.MiguComments, miguCommentReplies)
}

// platformName is the generated display name of an account created from Migu.
func platformName(openID string) string {
	suffix := openID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("$mg$%s%d", suffix, 1000+rand.IntN(9000))
}
