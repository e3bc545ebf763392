package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context

	users     UserRepository
	videos    VideoRepository
	games     GameRepository
	comments  CommentRepository
	relations RelationRepository
	reports   ReportRepository
	editorial EditorialRepository
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := database.OpenInMemory()
	require.NoError(s.T(), err)
	s.db = db
	s.ctx = context.Background()
	s.users = NewUserRepository(db)
	s.videos = NewVideoRepository(db)
	s.games = NewGameRepository(db)
	s.comments = NewCommentRepository(db)
	s.relations = NewRelationRepository(db)
	s.reports = NewReportRepository(db)
	s.editorial = NewEditorialRepository(db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) createVideo(author, game string, createAt float64, mutate ...func(*models.Video)) *models.Video {
	v := &models.Video{
		Author:      author,
		Game:        game,
		Title:       "clip",
		Status:      models.VideoOnline,
		CreateAt:    createAt,
		ReleaseTime: createAt,
	}
	for _, m := range mutate {
		m(v)
	}
	require.NoError(s.T(), s.videos.Create(s.ctx, v))
	return v
}

func ids(candidates []feed.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.ID
	}
	return out
}

func (s *RepositoryTestSuite) TestVideoGetOnlyOnline() {
	online := s.createVideo("u1", "g1", 100)
	offline := s.createVideo("u1", "g1", 200, func(v *models.Video) { v.Status = models.VideoUploading })

	got, ok, err := s.videos.Get(s.ctx, online.ID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(online.ID, got.ID)

	_, ok, err = s.videos.Get(s.ctx, offline.ID)
	s.Require().NoError(err)
	s.False(ok, "uploading videos are invisible to feeds")

	stored, err := s.videos.GetAny(s.ctx, offline.ID)
	s.Require().NoError(err)
	s.Equal(models.VideoUploading, stored.Status)

	_, err = s.videos.GetAny(s.ctx, "missing")
	s.ErrorIs(err, ErrVideoNotFound)

	many, err := s.videos.GetMany(s.ctx, []string{online.ID, offline.ID, "missing"})
	s.Require().NoError(err)
	s.Len(many, 1)
	s.Contains(many, online.ID)
}

func (s *RepositoryTestSuite) TestVideoSourceKeyset() {
	for i := 1; i <= 5; i++ {
		s.createVideo("u1", "g1", float64(i*100))
	}
	s.createVideo("u2", "g2", 350)

	src := s.videos.Source(ByCreateAt, feed.Descending)

	first, err := src.Query(s.ctx, VideoQuery{Author: "u1"}, feed.At(1e12), 2)
	s.Require().NoError(err)
	s.Require().Len(first, 2)
	s.Equal([]float64{500, 400}, []float64{first[0].Key, first[1].Key})

	next, err := src.Query(s.ctx, VideoQuery{Author: "u1"}, feed.At(first[1].Key), 10)
	s.Require().NoError(err)
	s.Len(next, 3)
	s.Equal(300.0, next[0].Key, "cursor is an exclusive bound")

	games, err := src.Query(s.ctx, VideoQuery{Games: []string{"g2"}}, feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Len(games, 1)

	none, err := src.Query(s.ctx, VideoQuery{Authors: []string{}}, feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Empty(none, "an empty author set matches nothing")
}

func (s *RepositoryTestSuite) TestVideoSourceResumesInsideTiedViews() {
	want := map[string]bool{}
	for i := 0; i < 6; i++ {
		v := s.createVideo("u1", "g1", float64(i+1), func(v *models.Video) { v.Vv = 5 })
		want[v.ID] = true
	}

	hot := feed.New[VideoQuery, *models.Video](s.videos.Source(ByViews, feed.Descending), s.videos, feed.CountOrdered())
	seen := map[string]bool{}
	cursor := feed.FromNow()
	pages := 0
	for ; pages < 10; pages++ {
		page, err := hot.Fetch(s.ctx, feed.Request[VideoQuery]{PageSize: 2, Cursor: cursor, Params: VideoQuery{Game: "g1"}}, nil)
		s.Require().NoError(err)
		for _, it := range page.Items {
			s.False(seen[it.ID], "duplicate %s", it.ID)
			seen[it.ID] = true
		}
		if page.EndOfData {
			break
		}
		s.Equal(5.0, page.NextCursor.Value())
		s.NotEmpty(page.NextCursor.After())
		cursor = page.NextCursor
	}
	s.Equal(want, seen)
	s.Less(pages, 10)
}

func (s *RepositoryTestSuite) TestRelationSourceResumesInsideTiedTimes() {
	for _, target := range []string{"va", "vb", "vc"} {
		s.Require().NoError(s.db.Create(&models.UserFaverVideo{Source: "u1", Target: target, CreateAt: 7}).Error)
	}
	src := s.relations.FavoriteSource()

	first, err := src.Query(s.ctx, "u1", feed.At(100), 2)
	s.Require().NoError(err)
	s.Equal([]string{"vc", "vb"}, ids(first))

	rest, err := src.Query(s.ctx, "u1", feed.AtAfter(7, "vb"), 2)
	s.Require().NoError(err)
	s.Equal([]string{"va"}, ids(rest))

	bare, err := src.Query(s.ctx, "u1", feed.At(7), 2)
	s.Require().NoError(err)
	s.Empty(bare, "a bound without an id excludes the whole run")
}

func (s *RepositoryTestSuite) TestVideoSourcePageMode() {
	for i := 1; i <= 5; i++ {
		s.createVideo("u1", "g1", float64(i))
	}
	src := s.videos.Source(ByCreateAt, feed.Descending)

	page2, err := src.Query(s.ctx, VideoQuery{}, feed.PageCursor(2), 2)
	s.Require().NoError(err)
	s.Equal([]float64{3, 2}, []float64{page2[0].Key, page2[1].Key})
}

func (s *RepositoryTestSuite) TestVideoSourceAscendingAndViews() {
	a := s.createVideo("u1", "g1", 1, func(v *models.Video) { v.UpdateAt = 10; v.Vv = 5 })
	b := s.createVideo("u1", "g1", 2, func(v *models.Video) { v.UpdateAt = 20; v.Vv = 50 })

	asc, err := s.videos.Source(ByUpdateAt, feed.Ascending).Query(s.ctx, VideoQuery{}, feed.At(0), 10)
	s.Require().NoError(err)
	s.Equal([]string{a.ID, b.ID}, ids(asc))

	hot, err := s.videos.Source(ByViews, feed.Descending).Query(s.ctx, VideoQuery{Game: "g1"}, feed.At(feed.CountOrigin), 10)
	s.Require().NoError(err)
	s.Equal([]string{b.ID, a.ID}, ids(hot))
}

func (s *RepositoryTestSuite) TestVideoSourceEliteAndLiveReplay() {
	s.createVideo("u1", "g1", 1)
	elite := s.createVideo("u1", "g1", 2, func(v *models.Video) { v.IsElite = true })
	replay := s.createVideo("u1", "g1", 3, func(v *models.Video) { v.EventID = "evt-1" })

	got, err := s.videos.Source(ByReleaseTime, feed.Descending).Query(s.ctx, VideoQuery{EliteOnly: true}, feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Equal([]string{elite.ID}, ids(got))

	got, err = s.videos.Source(ByCreateAt, feed.Descending).Query(s.ctx, VideoQuery{LiveReplay: true}, feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Equal([]string{replay.ID}, ids(got))

	found, err := s.videos.GetByEventID(s.ctx, "evt-1")
	s.Require().NoError(err)
	s.Equal(replay.ID, found.ID)
}

func (s *RepositoryTestSuite) TestVideoMutations() {
	v := s.createVideo("u1", "g1", 1, func(v *models.Video) { v.Status = models.VideoUploading })

	updated, err := s.videos.MarkUploaded(s.ctx, v.ID, "cover.jpg", "clip.mp4")
	s.Require().NoError(err)
	s.Equal(models.VideoOnline, updated.Status)
	s.Equal("clip.mp4", updated.URL)

	updated, err = s.videos.UpdateTitle(s.ctx, v.ID, "new title")
	s.Require().NoError(err)
	s.Equal("new title", updated.Title)

	s.Require().NoError(s.videos.IncrementViews(s.ctx, v.ID))
	s.Require().NoError(s.videos.IncrementViews(s.ctx, v.ID))
	got, err := s.videos.GetAny(s.ctx, v.ID)
	s.Require().NoError(err)
	s.EqualValues(2, got.Vv)

	s.Require().NoError(s.videos.Delete(s.ctx, v.ID))
	s.ErrorIs(s.videos.Delete(s.ctx, v.ID), ErrVideoNotFound)
	s.ErrorIs(s.videos.Create(s.ctx, &models.Video{}), ErrInvalidInput)
}

func (s *RepositoryTestSuite) TestRelations() {
	v := s.createVideo("u1", "g1", 1)

	changed, err := s.relations.AddLike(s.ctx, "u2", v.ID)
	s.Require().NoError(err)
	s.True(changed)
	changed, err = s.relations.AddLike(s.ctx, "u2", v.ID)
	s.Require().NoError(err)
	s.False(changed, "liking twice is a no-op")

	got, err := s.videos.GetAny(s.ctx, v.ID)
	s.Require().NoError(err)
	s.EqualValues(1, got.LikeCount)

	changed, err = s.relations.RemoveLike(s.ctx, "u2", v.ID)
	s.Require().NoError(err)
	s.True(changed)
	got, _ = s.videos.GetAny(s.ctx, v.ID)
	s.EqualValues(0, got.LikeCount)

	changed, err = s.relations.AddFavorite(s.ctx, "u2", v.ID)
	s.Require().NoError(err)
	s.True(changed)
	fav, err := s.relations.IsFavorite(s.ctx, "u2", v.ID)
	s.Require().NoError(err)
	s.True(fav)

	set, err := s.relations.FavoriteSet(s.ctx, "u2", []string{v.ID, "other"})
	s.Require().NoError(err)
	s.Equal(map[string]bool{v.ID: true}, set)

	candidates, err := s.relations.FavoriteSource().Query(s.ctx, "u2", feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Equal([]string{v.ID}, ids(candidates), "favorite candidates carry the video id")

	changed, err = s.relations.RemoveFavorite(s.ctx, "u2", v.ID)
	s.Require().NoError(err)
	s.True(changed)
}

func (s *RepositoryTestSuite) TestUsers() {
	u, err := s.users.CreatePlatformUser(s.ctx, "open-1", "pass-1", "nick")
	s.Require().NoError(err)
	again, err := s.users.CreatePlatformUser(s.ctx, "open-1", "pass-1", "nick")
	s.Require().NoError(err)
	s.Equal(u.ID, again.ID)

	other := &models.User{Name: "other"}
	s.Require().NoError(s.users.Create(s.ctx, other))

	following, err := s.users.FollowingIDs(s.ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(following)
	s.Empty(following)

	s.Require().NoError(s.users.Follow(s.ctx, u.ID, other.ID))
	s.Require().NoError(s.users.Follow(s.ctx, u.ID, other.ID))
	following, err = s.users.FollowingIDs(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal([]string{other.ID}, following)

	s.Require().NoError(s.users.UpdatePhone(s.ctx, u.ID, "13800000000"))
	byPhone, err := s.users.GetByPhone(s.ctx, "13800000000")
	s.Require().NoError(err)
	s.Equal(u.ID, byPhone.ID)

	s.Require().NoError(s.users.UpdateProvince(s.ctx, u.ID, "广东"))
	s.Require().NoError(s.users.UpdateMiguPassID(s.ctx, u.ID, "pass-1"))
	s.Require().NoError(s.users.BindMigu(s.ctx, u.ID, "open-bound"))
	bound, err := s.users.GetByMiguOpenID(s.ctx, "open-bound")
	s.Require().NoError(err)
	s.Equal(u.ID, bound.ID)
	s.Equal("广东", bound.Province)
	s.Equal("pass-1", bound.MiguPassID)
	s.ErrorIs(s.users.BindMigu(s.ctx, u.ID, ""), ErrInvalidInput)
	s.ErrorIs(s.users.UpdateProvince(s.ctx, "missing", "x"), ErrUserNotFound)

	_, err = s.users.Get(s.ctx, "missing")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestGamesAndSubscriptions() {
	hall := &models.Game{Name: "hall", Bid: "b-1"}
	plain := &models.Game{Name: "plain"}
	s.Require().NoError(s.games.Create(s.ctx, hall))
	s.Require().NoError(s.games.Create(s.ctx, plain))

	got, err := s.games.GetByBid(s.ctx, "b-1")
	s.Require().NoError(err)
	s.True(got.IsHallGame())
	hallSet, err := s.games.HallGameIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[string]bool{hall.ID: true}, hallSet)

	tag := &models.Category{Name: "moba"}
	s.Require().NoError(s.games.CreateCategory(s.ctx, tag))
	s.Require().NoError(s.games.AddToCategory(s.ctx, tag.ID, hall.ID))
	gameIDs, err := s.games.CategoryGameIDs(s.ctx, tag.ID)
	s.Require().NoError(err)
	s.Equal([]string{hall.ID}, gameIDs)

	subs, err := s.games.SubscribedGameIDs(s.ctx, "u1")
	s.Require().NoError(err)
	s.NotNil(subs)
	s.Require().NoError(s.games.Subscribe(s.ctx, "u1", plain.ID))
	subs, err = s.games.SubscribedGameIDs(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal([]string{plain.ID}, subs)

	_, err = s.games.Get(s.ctx, "missing")
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *RepositoryTestSuite) TestCommentsAndReplies() {
	v := s.createVideo("u1", "g1", 1)
	c := &models.Comment{Video: v.ID, Author: "u2", Content: "nice", CreateAt: 10}
	s.Require().NoError(s.comments.Create(s.ctx, c))
	s.Require().NoError(s.comments.Create(s.ctx, &models.Comment{Video: v.ID, Author: "u3", Content: "ok", CreateAt: 20}))

	got, _ := s.videos.GetAny(s.ctx, v.ID)
	s.EqualValues(2, got.CommentCount)

	candidates, err := s.comments.Source().Query(s.ctx, v.ID, feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Len(candidates, 2)
	s.Equal(20.0, candidates[0].Key)

	for i := 1; i <= 5; i++ {
		s.Require().NoError(s.comments.CreateReply(s.ctx, &models.Reply{Comment: c.ID, Owner: "u1", Content: "re", CreateAt: float64(100 + i)}))
	}
	err = s.comments.CreateReply(s.ctx, &models.Reply{Comment: "missing", Owner: "u1", Content: "re"})
	s.ErrorIs(err, ErrCommentNotFound)

	latest, err := s.comments.LatestReplies(s.ctx, []string{c.ID}, 4)
	s.Require().NoError(err)
	s.Len(latest[c.ID], 4)
	s.Equal(105.0, latest[c.ID][0].CreateAt)

	stored, ok, err := s.comments.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(5, stored.ReplyCount)

	replies, err := s.comments.ReplySource().Query(s.ctx, c.ID, feed.PageCursor(1), 3)
	s.Require().NoError(err)
	s.Len(replies, 3)
}

func (s *RepositoryTestSuite) TestReports() {
	report := &models.ReportVideo{Target: "v1", Source: models.ReportFromVideo, Reporter: "u1", UID: "owner"}
	s.Require().NoError(s.reports.Create(s.ctx, report))
	err := s.reports.Create(s.ctx, &models.ReportVideo{Target: "v1", Source: models.ReportFromVideo, Reporter: "u1"})
	s.ErrorIs(err, ErrAlreadyReported)
	s.Require().NoError(s.reports.Create(s.ctx, &models.ReportVideo{Target: "v1", Source: models.ReportFromComment, Reporter: "u1"}))

	count, err := s.reports.Count(s.ctx, "v1", models.ReportFromVideo)
	s.Require().NoError(err)
	s.EqualValues(1, count)

	_, err = s.reports.ConfigFor(s.ctx, models.ReportFromVideo)
	s.ErrorIs(err, ErrReportConfigNone)
	s.Require().NoError(s.reports.SaveConfig(s.ctx, &models.ReportConfig{Source: models.ReportFromVideo, MaxLimit: 3, Group: "ops"}))
	s.Require().NoError(s.reports.SaveConfig(s.ctx, &models.ReportConfig{Source: models.ReportFromVideo, MaxLimit: 5, Group: "ops"}))
	cfg, err := s.reports.ConfigFor(s.ctx, models.ReportFromVideo)
	s.Require().NoError(err)
	s.Equal(5, cfg.MaxLimit)

	s.ErrorIs(s.reports.Create(s.ctx, &models.ReportVideo{Target: "v1", Source: 9, Reporter: "u1"}), ErrInvalidInput)
}

func (s *RepositoryTestSuite) TestEditorial() {
	v1 := s.createVideo("u1", "g1", 1)
	v2 := s.createVideo("u1", "g1", 2)

	cat := &models.VideoCategory{Name: "funny"}
	s.Require().NoError(s.editorial.CreateCategory(s.ctx, cat))
	s.Require().NoError(s.editorial.AddToCategory(s.ctx, cat.ID, "g1", v1.ID))
	s.Require().NoError(s.editorial.AddToCategory(s.ctx, cat.ID, "g1", v2.ID))

	counts, err := s.editorial.CategoriesForGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Require().Len(counts, 1)
	s.EqualValues(2, counts[0].Count)

	empty, err := s.editorial.CategoriesForGame(s.ctx, "g2")
	s.Require().NoError(err)
	s.Empty(empty)

	candidates, err := s.editorial.CategorySource().Query(s.ctx, CategoryQuery{Category: cat.ID, Game: "g1"}, feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Len(candidates, 2)

	topic := &models.VideoTopic{Name: "week"}
	s.Require().NoError(s.editorial.CreateTopic(s.ctx, topic))
	s.Require().NoError(s.editorial.AddToTopic(s.ctx, topic.ID, v1.ID))
	s.Require().NoError(s.editorial.AddToTopic(s.ctx, topic.ID, v1.ID))
	topics, err := s.editorial.Topics(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(topics, 1)
	s.EqualValues(1, topics[0].Count)

	candidates, err = s.editorial.TopicSource().Query(s.ctx, topic.ID, feed.At(1e12), 10)
	s.Require().NoError(err)
	s.Equal([]string{v1.ID}, ids(candidates))

	_, err = s.editorial.GetTopic(s.ctx, "missing")
	s.ErrorIs(err, ErrTopicNotFound)

	s.Require().NoError(s.editorial.AddEditorPick(s.ctx, v2.ID, 2))
	s.Require().NoError(s.editorial.AddEditorPick(s.ctx, v1.ID, 1))
	picks, err := s.editorial.EditorPickIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{v1.ID, v2.ID}, picks)
}

func TestPaginateTiesBreakByID(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	repo := NewVideoRepository(db)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Create(ctx, &models.Video{Author: "u", Game: "g", Status: models.VideoOnline, CreateAt: 5}))
	}
	src := repo.Source(ByCreateAt, feed.Descending)
	p1, err := src.Query(ctx, VideoQuery{}, feed.PageCursor(1), 2)
	require.NoError(t, err)
	p2, err := src.Query(ctx, VideoQuery{}, feed.PageCursor(2), 2)
	require.NoError(t, err)
	assert.NotContains(t, ids(p2), p1[0].ID)
	assert.NotContains(t, ids(p2), p1[1].ID)
}
