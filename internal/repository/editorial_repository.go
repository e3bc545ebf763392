package repository

import (
	"context"
	"errors"

	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryQuery selects the videos an editor placed in a category for one game
type CategoryQuery struct {
	Category string
	Game     string
}

// CategoryCount is a video category with the number of videos it holds for a game
type CategoryCount struct {
	Category *models.VideoCategory
	Count    int64
}

// TopicCount is a topic with the number of videos in it
type TopicCount struct {
	Topic *models.VideoTopic
	Count int64
}

// EditorialRepository handles editor-curated video categories, topics and picks
type EditorialRepository interface {
	GetCategory(ctx context.Context, id string) (*models.VideoCategory, error)
	CreateCategory(ctx context.Context, category *models.VideoCategory) error
	AddToCategory(ctx context.Context, categoryID, gameID, videoID string) error
	// CategoriesForGame lists the categories holding at least one video of gameID.
	CategoriesForGame(ctx context.Context, gameID string) ([]CategoryCount, error)
	CategorySource() feed.Source[CategoryQuery]

	GetTopic(ctx context.Context, id string) (*models.VideoTopic, error)
	CreateTopic(ctx context.Context, topic *models.VideoTopic) error
	AddToTopic(ctx context.Context, topicID, videoID string) error
	Topics(ctx context.Context) ([]TopicCount, error)
	// TopicSource pages a topic by the time each video joined it (params: topic id).
	TopicSource() feed.Source[string]

	AddEditorPick(ctx context.Context, videoID string, order int) error
	// EditorPickIDs returns the editor picks in display order.
	EditorPickIDs(ctx context.Context) ([]string, error)
}

type editorialRepository struct {
	db *gorm.DB
}

// NewEditorialRepository creates a new editorial repository
func NewEditorialRepository(db *gorm.DB) EditorialRepository {
	return &editorialRepository{db: db}
}

func (r *editorialRepository) GetCategory(ctx context.Context, id string) (*models.VideoCategory, error) {
	var category models.VideoCategory
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *editorialRepository) CreateCategory(ctx context.Context, category *models.VideoCategory) error {
	if category == nil || category.Name == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *editorialRepository) AddToCategory(ctx context.Context, categoryID, gameID, videoID string) error {
	return r.db.WithContext(ctx).
		Create(&models.CategoryVideo{Category: categoryID, Game: gameID, Video: videoID}).Error
}

func (r *editorialRepository) CategoriesForGame(ctx context.Context, gameID string) ([]CategoryCount, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.CategoryVideo{}).
		Select("category, COUNT(*) AS count").
		Where("game = ?", gameID).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []CategoryCount{}, nil
	}

	ids := make([]string, len(rows))
	counts := make(map[string]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.Category
		counts[row.Category] = row.Count
	}
	var categories []*models.VideoCategory
	err = r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("order_no ASC").
		Order("create_at ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	out := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryCount{Category: c, Count: counts[c.ID]})
	}
	return out, nil
}

func (r *editorialRepository) CategorySource() feed.Source[CategoryQuery] {
	return feed.SourceFunc[CategoryQuery](func(ctx context.Context, q CategoryQuery, cursor feed.Cursor, limit int) ([]feed.Candidate, error) {
		db := r.db.WithContext(ctx).
			Model(&models.CategoryVideo{}).
			Where("category = ? AND game = ?", q.Category, q.Game)
		return keyset(db, "video", ByCreateAt, feed.Descending, cursor, limit)
	})
}

func (r *editorialRepository) GetTopic(ctx context.Context, id string) (*models.VideoTopic, error) {
	var topic models.VideoTopic
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *editorialRepository) CreateTopic(ctx context.Context, topic *models.VideoTopic) error {
	if topic == nil || topic.Name == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *editorialRepository) AddToTopic(ctx context.Context, topicID, videoID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TopicVideo{Topic: topicID, Video: videoID}).Error
}

func (r *editorialRepository) Topics(ctx context.Context) ([]TopicCount, error) {
	var topics []*models.VideoTopic
	if err := r.db.WithContext(ctx).Order("order_no ASC").Order("create_at DESC").Find(&topics).Error; err != nil {
		return nil, err
	}
	var rows []struct {
		Topic string
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.TopicVideo{}).
		Select("topic, COUNT(*) AS count").
		Group("topic").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Topic] = row.Count
	}
	out := make([]TopicCount, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicCount{Topic: t, Count: counts[t.ID]})
	}
	return out, nil
}

func (r *editorialRepository) TopicSource() feed.Source[string] {
	return feed.SourceFunc[string](func(ctx context.Context, topicID string, cursor feed.Cursor, limit int) ([]feed.Candidate, error) {
		q := r.db.WithContext(ctx).Model(&models.TopicVideo{}).Where("topic = ?", topicID)
		return keyset(q, "video", ByCreateAt, feed.Descending, cursor, limit)
	})
}

func (r *editorialRepository) AddEditorPick(ctx context.Context, videoID string, order int) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video"}},
			DoUpdates: clause.AssignmentColumns([]string{"order_no"}),
		}).
		Create(&models.EditorVideo{Video: videoID, Order: order}).Error
}

func (r *editorialRepository) EditorPickIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.EditorVideo{}).
		Order("order_no ASC").
		Order("create_at DESC").
		Pluck("video", &ids).Error
	return ids, err
}
