package repository

import (
	"context"
	"errors"

	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles all database operations for users
type UserRepository interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	GetMany(ctx context.Context, userIDs []string) (map[string]*models.User, error)
	GetByMiguOpenID(ctx context.Context, openID string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// CreatePlatformUser returns the account bound to a Migu open id, creating it on first use.
	CreatePlatformUser(ctx context.Context, openID, passID, nickname string) (*models.User, error)
	UpdatePhone(ctx context.Context, userID, phone string) error
	UpdateProvince(ctx context.Context, userID, province string) error
	// BindMigu links an existing account to a Migu open id.
	BindMigu(ctx context.Context, userID, openID string) error
	UpdateMiguPassID(ctx context.Context, userID, passID string) error

	// Follow relationship
	Follow(ctx context.Context, followerID, followingID string) error
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "id = ?", userID)
}

func (r *userRepository) GetByMiguOpenID(ctx context.Context, openID string) (*models.User, error) {
	if openID == "" {
		return nil, ErrInvalidInput
	}
	return r.first(ctx, "partner_migu_id = ?", openID)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	if phone == "" {
		return nil, ErrInvalidInput
	}
	return r.first(ctx, "phone = ?", phone)
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetMany(ctx context.Context, userIDs []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) CreatePlatformUser(ctx context.Context, openID, passID, nickname string) (*models.User, error) {
	user, err := r.GetByMiguOpenID(ctx, openID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &models.User{
		Name:       openID,
		Nickname:   nickname,
		MiguOpenID: openID,
		MiguPassID: passID,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		// lost a race with a concurrent first comment
		if existing, getErr := r.GetByMiguOpenID(ctx, openID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) UpdatePhone(ctx context.Context, userID, phone string) error {
	return r.set(ctx, userID, "phone", phone)
}

func (r *userRepository) UpdateProvince(ctx context.Context, userID, province string) error {
	return r.set(ctx, userID, "province", province)
}

func (r *userRepository) BindMigu(ctx context.Context, userID, openID string) error {
	if openID == "" {
		return ErrInvalidInput
	}
	return r.set(ctx, userID, "partner_migu_id", openID)
}

func (r *userRepository) UpdateMiguPassID(ctx context.Context, userID, passID string) error {
	return r.set(ctx, userID, "partner_migu_passid", passID)
}

func (r *userRepository) set(ctx context.Context, userID, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == "" || followingID == "" || followerID == followingID {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.FriendShip{Source: followerID, Target: followingID}).Error
}

// FollowingIDs returns the ids userID follows. The slice is non-nil so an empty
// result still constrains a video query.
func (r *userRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.FriendShip{}).
		Where("source = ?", userID).
		Pluck("target", &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
