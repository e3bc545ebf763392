package repository

import (
	"context"

	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepository handles favorites and likes between users and videos.
// Add and Remove are idempotent and report whether anything changed.
type RelationRepository interface {
	AddFavorite(ctx context.Context, userID, videoID string) (bool, error)
	RemoveFavorite(ctx context.Context, userID, videoID string) (bool, error)
	IsFavorite(ctx context.Context, userID, videoID string) (bool, error)
	FavoriteSet(ctx context.Context, userID string, videoIDs []string) (map[string]bool, error)

	// AddLike and RemoveLike keep the video's like count in step.
	AddLike(ctx context.Context, userID, videoID string) (bool, error)
	RemoveLike(ctx context.Context, userID, videoID string) (bool, error)
	LikeSet(ctx context.Context, userID string, videoIDs []string) (map[string]bool, error)

	// FavoriteSource pages a user's favorites by favorite time (params: user id).
	FavoriteSource() feed.Source[string]
}

type relationRepository struct {
	db *gorm.DB
}

// NewRelationRepository creates a new relation repository
func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{db: db}
}

func (r *relationRepository) AddFavorite(ctx context.Context, userID, videoID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserFaverVideo{Source: userID, Target: videoID})
	return res.RowsAffected > 0, res.Error
}

func (r *relationRepository) RemoveFavorite(ctx context.Context, userID, videoID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("source = ? AND target = ?", userID, videoID).
		Delete(&models.UserFaverVideo{})
	return res.RowsAffected > 0, res.Error
}

func (r *relationRepository) IsFavorite(ctx context.Context, userID, videoID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserFaverVideo{}).
		Where("source = ? AND target = ?", userID, videoID).
		Count(&count).Error
	return count > 0, err
}

func (r *relationRepository) FavoriteSet(ctx context.Context, userID string, videoIDs []string) (map[string]bool, error) {
	return r.targetSet(ctx, &models.UserFaverVideo{}, userID, videoIDs)
}

func (r *relationRepository) LikeSet(ctx context.Context, userID string, videoIDs []string) (map[string]bool, error) {
	return r.targetSet(ctx, &models.UserLikeVideo{}, userID, videoIDs)
}

func (r *relationRepository) targetSet(ctx context.Context, model interface{}, userID string, videoIDs []string) (map[string]bool, error) {
	set := make(map[string]bool, len(videoIDs))
	if userID == "" || len(videoIDs) == 0 {
		return set, nil
	}
	var targets []string
	err := r.db.WithContext(ctx).
		Model(model).
		Where("source = ? AND target IN ?", userID, videoIDs).
		Pluck("target", &targets).Error
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		set[t] = true
	}
	return set, nil
}

func (r *relationRepository) AddLike(ctx context.Context, userID, videoID string) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserLikeVideo{Source: userID, Target: videoID})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		changed = true
		return NewVideoRepository(tx).AdjustLikes(ctx, videoID, 1)
	})
	return changed, err
}

func (r *relationRepository) RemoveLike(ctx context.Context, userID, videoID string) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("source = ? AND target = ?", userID, videoID).Delete(&models.UserLikeVideo{})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		changed = true
		return NewVideoRepository(tx).AdjustLikes(ctx, videoID, -1)
	})
	return changed, err
}

func (r *relationRepository) FavoriteSource() feed.Source[string] {
	return feed.SourceFunc[string](func(ctx context.Context, userID string, cursor feed.Cursor, limit int) ([]feed.Candidate, error) {
		q := r.db.WithContext(ctx).Model(&models.UserFaverVideo{}).Where("source = ?", userID)
		return keyset(q, "target", ByCreateAt, feed.Descending, cursor, limit)
	})
}
