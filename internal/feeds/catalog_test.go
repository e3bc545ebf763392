package feeds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
)

type fixture struct {
	catalog *Catalog
	videos  repository.VideoRepository
	games   repository.GameRepository
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	videos := repository.NewVideoRepository(db)
	catalog, err := NewCatalog(Repositories{
		Videos:    videos,
		Relations: repository.NewRelationRepository(db),
		Editorial: repository.NewEditorialRepository(db),
		Comments:  repository.NewCommentRepository(db),
	}, cfg)
	require.NoError(t, err)
	return &fixture{catalog: catalog, videos: videos, games: repository.NewGameRepository(db)}
}

func (f *fixture) video(t *testing.T, game string, createAt float64, mutate ...func(*models.Video)) *models.Video {
	v := &models.Video{Author: "u1", Game: game, Status: models.VideoOnline, CreateAt: createAt, ReleaseTime: createAt}
	for _, m := range mutate {
		m(v)
	}
	require.NoError(t, f.videos.Create(context.Background(), v))
	return v
}

func TestHallGameFilterBackfills(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	hall := &models.Game{Name: "hall", Bid: "b1"}
	other := &models.Game{Name: "other"}
	require.NoError(t, f.games.Create(ctx, hall))
	require.NoError(t, f.games.Create(ctx, other))

	// newest first: three non-hall videos hide the hall ones behind them
	for i := 0; i < 3; i++ {
		f.video(t, other.ID, float64(100-i))
	}
	for i := 0; i < 3; i++ {
		f.video(t, hall.ID, float64(50-i), func(v *models.Video) { v.IsElite = true })
	}
	f.video(t, other.ID, 99.5, func(v *models.Video) { v.IsElite = true })

	hallSet, err := f.games.HallGameIDs(ctx)
	require.NoError(t, err)

	page, err := f.catalog.Latest.Fetch(ctx, feed.Request[repository.VideoQuery]{
		PageSize: 2,
		Cursor:   feed.FromNow(),
	}, f.catalog.VideoFilter(MiguElite, HallGames(hallSet)))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, v := range page.Values() {
		assert.Equal(t, hall.ID, v.Game)
	}
	assert.False(t, page.EndOfData)
	assert.Greater(t, page.Stats.Rounds, 1)
}

func TestGameLiveFilter(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	f.video(t, "g1", 3)
	replay := f.video(t, "g1", 2, func(v *models.Video) { v.EventID = "evt" })
	oldest := f.video(t, "g1", 1)

	page, err := f.catalog.GameLiveVideos.Fetch(ctx, feed.Request[repository.VideoQuery]{
		PageSize: 5,
		Cursor:   feed.FromNow(),
		Params:   repository.VideoQuery{Game: "g1"},
	}, f.catalog.VideoFilter(GameLiveVideos, LiveReplays()))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, replay.ID, page.Items[0].ID)
	assert.True(t, page.EndOfData)
	assert.Equal(t, feed.AtAfter(1, oldest.ID), page.NextCursor)
}

func TestGameHotVideosUseViewCounts(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	low := f.video(t, "g1", 1, func(v *models.Video) { v.Vv = 3 })
	high := f.video(t, "g1", 2, func(v *models.Video) { v.Vv = 300 })

	page, err := f.catalog.GameHotVideos.Fetch(ctx, feed.Request[repository.VideoQuery]{
		PageSize: 1,
		Cursor:   feed.FromNow(),
		Params:   repository.VideoQuery{Game: "g1"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, high.ID, page.Items[0].ID)
	assert.Equal(t, feed.AtAfter(300, high.ID), page.NextCursor)

	page, err = f.catalog.GameHotVideos.Fetch(ctx, feed.Request[repository.VideoQuery]{
		PageSize: 1,
		Cursor:   page.NextCursor,
		Params:   repository.VideoQuery{Game: "g1"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, low.ID, page.Items[0].ID)
}

func TestGameHotVideosWalkTiedViewCounts(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	want := map[string]bool{}
	for i := 0; i < 6; i++ {
		v := f.video(t, "g1", float64(i+1), func(v *models.Video) { v.Vv = 5 })
		want[v.ID] = true
	}
	zero := f.video(t, "g1", 10)
	want[zero.ID] = true

	seen := map[string]bool{}
	cursor := feed.FromNow()
	for i := 0; i < 20; i++ {
		page, err := f.catalog.GameHotVideos.Fetch(ctx, feed.Request[repository.VideoQuery]{
			PageSize: 2,
			Cursor:   cursor,
			Params:   repository.VideoQuery{Game: "g1"},
		}, nil)
		require.NoError(t, err)
		for _, it := range page.Items {
			assert.False(t, seen[it.ID], "duplicate %s", it.ID)
			seen[it.ID] = true
		}
		if page.EndOfData {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, want, seen)
}

func TestPartnerListAscendsFromZero(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	a := f.video(t, "g1", 1, func(v *models.Video) { v.UpdateAt = 10 })
	b := f.video(t, "g1", 2, func(v *models.Video) { v.UpdateAt = 20 })

	page, err := f.catalog.PartnerList.Fetch(ctx, feed.Request[repository.VideoQuery]{
		PageSize: 10,
		Cursor:   feed.FromNow(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, []string{page.Items[0].ID, page.Items[1].ID})
	assert.True(t, page.EndOfData)
	assert.Equal(t, feed.AtAfter(20, b.ID), page.NextCursor, "an exhausted ascending feed keeps its cursor for polling")
}

func TestRuleFromConfig(t *testing.T) {
	f := newFixture(t, Config{Rules: map[string]string{Latest: "duration >= 10"}})
	ctx := context.Background()

	f.video(t, "g1", 2, func(v *models.Video) { v.Duration = 3 })
	long := f.video(t, "g1", 1, func(v *models.Video) { v.Duration = 30 })

	page, err := f.catalog.Latest.Fetch(ctx, feed.Request[repository.VideoQuery]{
		PageSize: 5,
		Cursor:   feed.FromNow(),
	}, f.catalog.VideoFilter(Latest))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, long.ID, page.Items[0].ID)

	assert.Nil(t, f.catalog.VideoFilter(Elite), "feeds without rules accept everything")
}

func TestBadRuleFailsCatalog(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	_, err = NewCatalog(Repositories{
		Videos:    repository.NewVideoRepository(db),
		Relations: repository.NewRelationRepository(db),
		Editorial: repository.NewEditorialRepository(db),
		Comments:  repository.NewCommentRepository(db),
	}, Config{Rules: map[string]string{Latest: "duration >="}})
	assert.Error(t, err)
}
