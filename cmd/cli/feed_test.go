package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/feeds"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/seed"
)

func TestWalkCoversFeedWithoutDuplicates(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	ctx := context.Background()
	_, err = seed.NewSeeder(db, 7).Seed(ctx, seed.TestCounts)
	require.NoError(t, err)

	catalog, err := feeds.NewCatalog(feeds.Repositories{
		Videos:    repository.NewVideoRepository(db),
		Relations: repository.NewRelationRepository(db),
		Editorial: repository.NewEditorialRepository(db),
		Comments:  repository.NewCommentRepository(db),
	}, feeds.Config{MaxRounds: 16})
	require.NoError(t, err)

	var online int64
	require.NoError(t, db.Model(&models.Video{}).Where("status = ?", models.VideoOnline).Count(&online).Error)

	report, err := walk(ctx, catalog.Latest, repository.VideoQuery{}, nil, 7, 0)
	require.NoError(t, err)
	assert.True(t, report.Reached)
	assert.Zero(t, report.Duplicates)
	assert.Equal(t, int(online), report.Items)

	hall, err := repository.NewGameRepository(db).HallGameIDs(ctx)
	require.NoError(t, err)
	report, err = walk(ctx, catalog.GameLiveVideos, repository.VideoQuery{}, feeds.LiveReplays(), 3, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, report.Pages, 2)

	report, err = walk(ctx, catalog.MiguElite, repository.VideoQuery{EliteOnly: true}, feeds.HallGames(hall), 5, 0)
	require.NoError(t, err)
	assert.True(t, report.Reached)
	assert.Zero(t, report.Duplicates)
}
