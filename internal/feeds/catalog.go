// Package feeds wires every paginated feed served over HTTP to a feed.Fetcher:
// its source, repository, ordering and safeguards.
package feeds

import (
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"go.uber.org/zap"
)

// Feed names. They label metrics and select configured rules.
const (
	Latest          = "latest"
	Elite           = "elite"
	PartnerList     = "partner_list"
	UserVideos      = "user_videos"
	UserLiveVideos  = "user_live_videos"
	FollowingVideos = "following_videos"
	Favorites       = "favorites"
	GameVideos      = "game_videos"
	GameHotVideos   = "game_hot_videos"
	GameLiveVideos  = "game_live_videos"
	GamePopular     = "game_popular"
	TagVideos       = "tag_videos"
	CategoryVideos  = "category_videos"
	TopicVideos     = "topic_videos"
	Comments        = "comments"
	MiguUserVideos  = "migu_user_videos"
	MiguElite       = "migu_elite"
	MiguComments    = "migu_comments"
)

// Videos is a feed of online videos narrowed by a VideoQuery.
type Videos = feed.Fetcher[repository.VideoQuery, *models.Video]

// Config carries the safeguards applied to every feed and the optional expr rules
// keyed by feed name.
type Config struct {
	MaxRounds   int
	MaxScanned  int
	Concurrency int
	Rules       map[string]string
}

// Catalog holds one Fetcher per feed. It is built once at startup and shared by
// all requests.
type Catalog struct {
	Latest          *Videos
	Elite           *Videos
	PartnerList     *Videos
	UserVideos      *Videos
	UserLiveVideos  *Videos
	FollowingVideos *Videos
	GameVideos      *Videos
	GameHotVideos   *Videos
	GameLiveVideos  *Videos
	GamePopular     *Videos
	TagVideos       *Videos
	MiguUserVideos  *Videos
	MiguElite       *Videos

	Favorites      *feed.Fetcher[string, *models.Video]
	TopicVideos    *feed.Fetcher[string, *models.Video]
	CategoryVideos *feed.Fetcher[repository.CategoryQuery, *models.Video]
	Comments       *feed.Fetcher[string, *models.Comment]
	MiguComments   *feed.Fetcher[string, *models.Comment]

	rules map[string]*feed.RuleFilter[*models.Video]
}

// Repositories the catalog reads from.
type Repositories struct {
	Videos    repository.VideoRepository
	Relations repository.RelationRepository
	Editorial repository.EditorialRepository
	Comments  repository.CommentRepository
}

// NewCatalog builds every feed. A rule that does not compile is an error so bad
// configuration fails at startup.
func NewCatalog(repos Repositories, cfg Config) (*Catalog, error) {
	common := func(name string, extra ...feed.Option) []feed.Option {
		opts := []feed.Option{
			feed.WithName(name),
			feed.WithMaxRounds(cfg.MaxRounds),
			feed.WithMaxScanned(cfg.MaxScanned),
		}
		if cfg.Concurrency > 0 {
			opts = append(opts, feed.WithConcurrency(cfg.Concurrency))
		}
		return append(opts, extra...)
	}

	byCreate := repos.Videos.Source(repository.ByCreateAt, feed.Descending)
	byRelease := repos.Videos.Source(repository.ByReleaseTime, feed.Descending)
	byViews := repos.Videos.Source(repository.ByViews, feed.Descending)
	byUpdate := repos.Videos.Source(repository.ByUpdateAt, feed.Ascending)

	videos := func(src feed.Source[repository.VideoQuery], name string, extra ...feed.Option) *Videos {
		return feed.New[repository.VideoQuery, *models.Video](src, repos.Videos, common(name, extra...)...)
	}

	c := &Catalog{
		Latest:          videos(byCreate, Latest),
		Elite:           videos(byRelease, Elite),
		PartnerList:     videos(byUpdate, PartnerList, feed.WithOrder(feed.Ascending), feed.WithOrigin(zero), feed.WithoutSentinel()),
		UserVideos:      videos(byCreate, UserVideos),
		UserLiveVideos:  videos(byCreate, UserLiveVideos),
		FollowingVideos: videos(byCreate, FollowingVideos),
		GameVideos:      videos(byCreate, GameVideos),
		GameHotVideos:   videos(byViews, GameHotVideos, feed.CountOrdered()),
		GameLiveVideos:  videos(byCreate, GameLiveVideos),
		GamePopular:     videos(byViews, GamePopular, feed.CountOrdered()),
		TagVideos:       videos(byCreate, TagVideos),
		MiguUserVideos:  videos(byCreate, MiguUserVideos),
		MiguElite:       videos(byRelease, MiguElite),

		Favorites:      feed.New[string, *models.Video](repos.Relations.FavoriteSource(), repos.Videos, common(Favorites)...),
		TopicVideos:    feed.New[string, *models.Video](repos.Editorial.TopicSource(), repos.Videos, common(TopicVideos)...),
		CategoryVideos: feed.New[repository.CategoryQuery, *models.Video](repos.Editorial.CategorySource(), repos.Videos, common(CategoryVideos)...),
		Comments:       feed.New[string, *models.Comment](repos.Comments.Source(), repos.Comments, common(Comments)...),
		MiguComments:   feed.New[string, *models.Comment](repos.Comments.Source(), repos.Comments, common(MiguComments)...),

		rules: make(map[string]*feed.RuleFilter[*models.Video]),
	}

	for name, rule := range cfg.Rules {
		rf, err := feed.NewRuleFilter(name, rule, VideoEnv)
		if err != nil {
			return nil, err
		}
		c.rules[name] = rf
		logger.Log.Info("Feed rule loaded", logger.WithFeed(name), zap.String("rule", rule))
	}
	return c, nil
}

func zero() float64 { return 0 }

// VideoFilter combines the configured rule of the named feed with extra filters.
// It returns nil when nothing filters, which accepts every video.
func (c *Catalog) VideoFilter(name string, extra ...feed.Filter[*models.Video]) feed.Filter[*models.Video] {
	filters := append([]feed.Filter[*models.Video]{c.rules[name].Filter()}, extra...)
	return feed.All(filters...)
}

// HallGames keeps videos whose game is listed in the Migu game hall.
func HallGames(hall map[string]bool) feed.Filter[*models.Video] {
	return func(v *models.Video) bool { return hall[v.Game] }
}

// LiveReplays keeps videos recorded from a live event.
func LiveReplays() feed.Filter[*models.Video] {
	return func(v *models.Video) bool { return v.IsLiveReplay() }
}

// VideoEnv exposes a video to eligibility rules.
func VideoEnv(v *models.Video) map[string]any {
	return map[string]any{
		"id":            v.ID,
		"author":        v.Author,
		"game":          v.Game,
		"title":         v.Title,
		"duration":      v.Duration,
		"vv":            v.Vv,
		"like":          v.LikeCount,
		"comment_count": v.CommentCount,
		"is_elite":      v.IsElite,
		"event_id":      v.EventID,
		"release_time":  v.ReleaseTime,
		"create_at":     v.CreateAt,
	}
}
