package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/dto"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/feeds"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/util"
)

const (
	partnerPageSize     = 20
	partnerMaxPageSize  = 100
	subscriptionPreview = 4
)

// LatestVideos is the newest-first feed of every online video
// GET /videos/current/
func (h *Handlers) LatestVideos(c *gin.Context) {
	videoPage(h, c, h.feeds.Latest, repository.VideoQuery{}, h.feeds.VideoFilter(feeds.Latest), withLiked, nil)
}

// EliteVideos is the elite feed, ordered by release time
// GET /videos/elite/
func (h *Handlers) EliteVideos(c *gin.Context) {
	videoPage(h, c, h.feeds.Elite, repository.VideoQuery{EliteOnly: true}, h.feeds.VideoFilter(feeds.Elite), impersonal, nil)
}

// PartnerVideos lets partners pull videos changed since maxs, oldest first
// GET /videos/list
func (h *Handlers) PartnerVideos(c *gin.Context) {
	token := param(c, "token")
	if token == "" {
		util.RespondInvalidArguments(c, "token", "token is required")
		return
	}
	maxs := param(c, "maxs")
	if maxs == "" {
		maxs = "0"
	}
	cursor, err := feed.ParseCursor(maxs, true, "", param(c, "after"))
	if err != nil {
		util.RespondInvalidArguments(c, "maxs", err.Error())
		return
	}
	size := partnerPageSize
	if nbr := param(c, "nbr"); nbr != "" {
		if size, err = strconv.Atoi(nbr); err != nil {
			util.RespondInvalidArguments(c, "nbr", "nbr must be an integer")
			return
		}
	}
	size = min(max(size, 1), partnerMaxPageSize)

	if !h.partners.Verify(token) {
		util.RespondUnauthorized(c, "invalid partner token")
		return
	}

	req := feed.Request[repository.VideoQuery]{PageSize: size, Cursor: cursor}
	serveVideoPage(h, c, h.feeds.PartnerList, req, h.feeds.VideoFilter(feeds.PartnerList), impersonal, nil)
}

// UserFavorites lists the videos a user saved, most recently saved first
// GET /users/:uid/favors
func (h *Handlers) UserFavorites(c *gin.Context) {
	videoPage(h, c, h.feeds.Favorites, c.Param("uid"), h.feeds.VideoFilter(feeds.Favorites), impersonal, nil)
}

// UserVideos lists a user's videos, optionally for one game
// GET /users/:uid/videos
func (h *Handlers) UserVideos(c *gin.Context) {
	q := repository.VideoQuery{Author: c.Param("uid")}
	if gid := param(c, "game_id"); gid != "" {
		game, err := h.games.Get(c.Request.Context(), gid)
		if util.HandleDBError(c, err, "game") {
			return
		}
		q.Game = game.ID
	}
	videoPage(h, c, h.feeds.UserVideos, q, h.feeds.VideoFilter(feeds.UserVideos), impersonal, nil)
}

// UserLiveVideos lists a user's videos recorded from live events
// GET /users/:uid/live_videos
func (h *Handlers) UserLiveVideos(c *gin.Context) {
	q := repository.VideoQuery{Author: c.Param("uid"), LiveReplay: true}
	videoPage(h, c, h.feeds.UserLiveVideos, q, h.feeds.VideoFilter(feeds.UserLiveVideos), impersonal, nil)
}

// FollowingVideos lists videos by the accounts the caller follows
// GET /users/:uid/followings/videos
func (h *Handlers) FollowingVideos(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	following, err := h.users.FollowingIDs(c.Request.Context(), user.ID)
	if err != nil {
		util.RespondInternalError(c, "Failed to load followings")
		return
	}
	if following == nil {
		following = []string{}
	}
	q := repository.VideoQuery{Authors: following, Game: param(c, "game_id")}
	videoPage(h, c, h.feeds.FollowingVideos, q, h.feeds.VideoFilter(feeds.FollowingVideos), withLiked, nil)
}

// UserSubscriptions shows the newest videos of every game a user subscribed to
// GET /users/:uid/subscriptions
func (h *Handlers) UserSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()
	gameIDs, err := h.games.SubscribedGameIDs(ctx, c.Param("uid"))
	if err != nil {
		util.RespondInternalError(c, "Failed to load subscriptions")
		return
	}
	games, err := h.games.GetMany(ctx, gameIDs)
	if err != nil {
		util.RespondInternalError(c, "Failed to load games")
		return
	}

	filter := h.feeds.VideoFilter(feeds.GameVideos)
	out := make([]*dto.SubscriptionResponse, 0, len(gameIDs))
	for _, gid := range gameIDs {
		game, ok := games[gid]
		if !ok {
			continue
		}
		page, err := h.feeds.GameVideos.Fetch(ctx, feed.Request[repository.VideoQuery]{
			PageSize: subscriptionPreview,
			Cursor:   feed.FromNow(),
			Params:   repository.VideoQuery{Game: gid},
		}, filter)
		if err != nil {
			respondFeedError(c, err)
			return
		}
		videos, err := h.renderVideos(ctx, page.Values(), "", impersonal)
		if err != nil {
			util.RespondInternalError(c, "Failed to load videos")
			return
		}
		out = append(out, &dto.SubscriptionResponse{Game: dto.ToGameResponse(game), Videos: videos})
	}
	util.RespondOK(c, gin.H{"videos": out})
}

// GameVideos lists a game's videos by creation time, or by views with orderby=vv
// GET /games/:gid/videos
func (h *Handlers) GameVideos(c *gin.Context) {
	q := repository.VideoQuery{Game: c.Param("gid")}
	if param(c, "orderby") == "vv" {
		videoPage(h, c, h.feeds.GameHotVideos, q, h.feeds.VideoFilter(feeds.GameHotVideos), impersonal, nil)
		return
	}
	videoPage(h, c, h.feeds.GameVideos, q, h.feeds.VideoFilter(feeds.GameVideos), impersonal, nil)
}

// GameLiveVideos lists a game's videos recorded from live events. The source
// scans every video of the game and the filter keeps the replays.
// GET /games/:gid/live_videos
func (h *Handlers) GameLiveVideos(c *gin.Context) {
	q := repository.VideoQuery{Game: c.Param("gid")}
	filter := h.feeds.VideoFilter(feeds.GameLiveVideos, feeds.LiveReplays())
	videoPage(h, c, h.feeds.GameLiveVideos, q, filter, impersonal, nil)
}

// GamePopularVideos pages a game's most viewed videos. Only page mode is offered.
// GET /games/:gid/popular/videos
func (h *Handlers) GamePopularVideos(c *gin.Context) {
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
	req := feed.Request[repository.VideoQuery]{PageSize: size, Cursor: cursor, Params: repository.VideoQuery{Game: c.Param("gid")}}
	serveVideoPage(h, c, h.feeds.GamePopular, req, h.feeds.VideoFilter(feeds.GamePopular), impersonal, nil)
}

// TagVideos lists the videos of every game carrying a tag
// GET /tags/:cid/videos, GET /migu/tags/:cid/videos/
func (h *Handlers) TagVideos(c *gin.Context) {
	gameIDs, err := h.games.CategoryGameIDs(c.Request.Context(), c.Param("cid"))
	if err != nil {
		util.RespondInternalError(c, "Failed to load tag")
		return
	}
	q := repository.VideoQuery{Games: gameIDs}
	videoPage(h, c, h.feeds.TagVideos, q, h.feeds.VideoFilter(feeds.TagVideos), impersonal, nil)
}
