package repository

import (
	"context"
	"errors"

	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameRepository handles games, game tags, subscriptions and home grids
type GameRepository interface {
	Get(ctx context.Context, id string) (*models.Game, error)
	GetByBid(ctx context.Context, bid string) (*models.Game, error)
	GetMany(ctx context.Context, ids []string) (map[string]*models.Game, error)
	Create(ctx context.Context, game *models.Game) error
	// HallGameIDs returns the ids of games listed in the Migu game hall.
	HallGameIDs(ctx context.Context) (map[string]bool, error)

	Categories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	AddToCategory(ctx context.Context, categoryID, gameID string) error
	// CategoryGameIDs returns the games tagged categoryID; never nil.
	CategoryGameIDs(ctx context.Context, categoryID string) ([]string, error)

	Subscribe(ctx context.Context, userID, gameID string) error
	// SubscribedGameIDs returns the games a user subscribed to, newest first; never nil.
	SubscribedGameIDs(ctx context.Context, userID string) ([]string, error)

	GridsByName(ctx context.Context, name string) ([]*models.GameGrid, error)
}

type gameRepository struct {
	db *gorm.DB
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) Get(ctx context.Context, id string) (*models.Game, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gameRepository) GetByBid(ctx context.Context, bid string) (*models.Game, error) {
	if bid == "" {
		return nil, ErrInvalidInput
	}
	return r.first(ctx, "bid = ?", bid)
}

func (r *gameRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).Where(query, args...).Take(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) GetMany(ctx context.Context, ids []string) (map[string]*models.Game, error) {
	out := make(map[string]*models.Game, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var games []*models.Game
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&games).Error; err != nil {
		return nil, err
	}
	for _, g := range games {
		out[g.ID] = g
	}
	return out, nil
}

func (r *gameRepository) Create(ctx context.Context, game *models.Game) error {
	if game == nil || game.Name == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(game).Error
}

func (r *gameRepository) HallGameIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Game{}).Where("bid <> ''").Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (r *gameRepository) Categories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := r.db.WithContext(ctx).Order("order_no ASC").Order("create_at ASC").Find(&categories).Error
	return categories, err
}

func (r *gameRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *gameRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category == nil || category.Name == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *gameRepository) AddToCategory(ctx context.Context, categoryID, gameID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CategoryGame{Category: categoryID, Game: gameID}).Error
}

func (r *gameRepository) CategoryGameIDs(ctx context.Context, categoryID string) ([]string, error) {
	return r.pluck(ctx, &models.CategoryGame{}, "game", "category = ?", categoryID)
}

func (r *gameRepository) Subscribe(ctx context.Context, userID, gameID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserSubGame{Source: userID, Target: gameID}).Error
}

func (r *gameRepository) SubscribedGameIDs(ctx context.Context, userID string) ([]string, error) {
	return r.pluck(ctx, &models.UserSubGame{}, "target", "source = ?", userID)
}

func (r *gameRepository) pluck(ctx context.Context, model interface{}, column, query string, args ...interface{}) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(model).
		Where(query, args...).
		Order("create_at DESC").
		Pluck(column, &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *gameRepository) GridsByName(ctx context.Context, name string) ([]*models.GameGrid, error) {
	var grids []*models.GameGrid
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("order_no ASC").Find(&grids).Error
	return grids, err
}
