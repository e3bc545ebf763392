package repository

import (
	"context"
	"errors"

	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
)

// Sort columns of the video feeds
const (
	ByCreateAt    = "create_at"
	ByReleaseTime = "release_time"
	ByViews       = "vv"
	ByUpdateAt    = "update_at"
)

// VideoQuery narrows a video feed. Empty fields do not constrain. A non-nil but
// empty Authors or Games set matches nothing (a user following nobody has an empty feed).
type VideoQuery struct {
	Author     string
	Game       string
	Authors    []string
	Games      []string
	EliteOnly  bool
	LiveReplay bool
}

// VideoRepository handles all database operations for videos
type VideoRepository interface {
	// Get and GetMany only see online videos; they back every video feed.
	Get(ctx context.Context, id string) (*models.Video, bool, error)
	GetMany(ctx context.Context, ids []string) (map[string]*models.Video, error)
	// GetAny returns a video in any status.
	GetAny(ctx context.Context, id string) (*models.Video, error)
	GetByEventID(ctx context.Context, eventID string) (*models.Video, error)
	ListOrdered(ctx context.Context, ids []string) ([]*models.Video, error)

	Create(ctx context.Context, video *models.Video) error
	UpdateTitle(ctx context.Context, id, title string) (*models.Video, error)
	MarkUploaded(ctx context.Context, id, cover, url string) (*models.Video, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	AdjustLikes(ctx context.Context, id string, delta int) error

	// Source returns the keyset source of online videos ordered by column.
	Source(column string, order feed.Order) feed.Source[VideoQuery]
}

type videoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Get(ctx context.Context, id string) (*models.Video, bool, error) {
	var video models.Video
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.VideoOnline).
		Take(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &video, true, nil
}

func (r *videoRepository) GetMany(ctx context.Context, ids []string) (map[string]*models.Video, error) {
	out := make(map[string]*models.Video, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var videos []*models.Video
	err := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, models.VideoOnline).
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		out[v.ID] = v
	}
	return out, nil
}

// ListOrdered returns the online videos among ids in the order of ids
func (r *videoRepository) ListOrdered(ctx context.Context, ids []string) ([]*models.Video, error) {
	found, err := r.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Video, 0, len(found))
	for _, id := range ids {
		if v, ok := found[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *videoRepository) GetAny(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVideoNotFound
	}
	return &video, err
}

// GetByEventID returns the newest online video recorded from a live event
func (r *videoRepository) GetByEventID(ctx context.Context, eventID string) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, models.VideoOnline).
		Order("create_at DESC").
		Take(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVideoNotFound
	}
	return &video, err
}

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	if video == nil || video.Author == "" || video.Game == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *videoRepository) UpdateTitle(ctx context.Context, id, title string) (*models.Video, error) {
	return r.update(ctx, id, map[string]interface{}{"title": title})
}

// MarkUploaded stores the uploaded file locations and puts the video online
func (r *videoRepository) MarkUploaded(ctx context.Context, id, cover, url string) (*models.Video, error) {
	return r.update(ctx, id, map[string]interface{}{
		"cover":  cover,
		"url":    url,
		"status": models.VideoOnline,
	})
}

func (r *videoRepository) update(ctx context.Context, id string, fields map[string]interface{}) (*models.Video, error) {
	video, err := r.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(video).Updates(fields).Error; err != nil {
		return nil, err
	}
	return r.GetAny(ctx, id)
}

func (r *videoRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Video{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// IncrementViews bumps vv without touching update_at
func (r *videoRepository) IncrementViews(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ?", id).
		UpdateColumn("vv", gorm.Expr("vv + ?", 1)).Error
}

func (r *videoRepository) AdjustLikes(ctx context.Context, id string, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ?", id).
		UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count + ? < 0 THEN 0 ELSE like_count + ? END", delta, delta)).Error
}

func (r *videoRepository) Source(column string, order feed.Order) feed.Source[VideoQuery] {
	return feed.SourceFunc[VideoQuery](func(ctx context.Context, q VideoQuery, cursor feed.Cursor, limit int) ([]feed.Candidate, error) {
		if (q.Authors != nil && len(q.Authors) == 0) || (q.Games != nil && len(q.Games) == 0) {
			return []feed.Candidate{}, nil
		}
		db := r.db.WithContext(ctx).Model(&models.Video{}).Where("status = ?", models.VideoOnline)
		if q.Author != "" {
			db = db.Where("author = ?", q.Author)
		}
		if q.Game != "" {
			db = db.Where("game = ?", q.Game)
		}
		if len(q.Authors) > 0 {
			db = db.Where("author IN ?", q.Authors)
		}
		if len(q.Games) > 0 {
			db = db.Where("game IN ?", q.Games)
		}
		if q.EliteOnly {
			db = db.Where("is_elite = ?", true)
		}
		if q.LiveReplay {
			db = db.Where("event_id <> ''")
		}
		return keyset(db, "id", column, order, cursor, limit)
	})
}
