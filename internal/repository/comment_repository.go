package repository

import (
	"context"
	"errors"

	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository handles comments and their replies
type CommentRepository interface {
	Get(ctx context.Context, id string) (*models.Comment, bool, error)
	GetMany(ctx context.Context, ids []string) (map[string]*models.Comment, error)
	// Create stores the comment and bumps the video's comment count.
	Create(ctx context.Context, comment *models.Comment) error

	GetReply(ctx context.Context, id string) (*models.Reply, bool, error)
	GetReplies(ctx context.Context, ids []string) (map[string]*models.Reply, error)
	CreateReply(ctx context.Context, reply *models.Reply) error
	// LatestReplies returns the n newest replies of every comment in commentIDs.
	LatestReplies(ctx context.Context, commentIDs []string, n int) (map[string][]*models.Reply, error)

	// Source pages the comments of a video (params: video id).
	Source() feed.Source[string]
	// ReplySource pages the replies of a comment (params: comment id).
	ReplySource() feed.Source[string]
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Get(ctx context.Context, id string) (*models.Comment, bool, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &comment, true, nil
}

func (r *commentRepository) GetMany(ctx context.Context, ids []string) (map[string]*models.Comment, error) {
	out := make(map[string]*models.Comment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&comments).Error; err != nil {
		return nil, err
	}
	for _, c := range comments {
		out[c.ID] = c
	}
	return out, nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.Video == "" || comment.Author == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Video{}).
			Where("id = ?", comment.Video).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
}

func (r *commentRepository) GetReply(ctx context.Context, id string) (*models.Reply, bool, error) {
	var reply models.Reply
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&reply).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &reply, true, nil
}

func (r *commentRepository) GetReplies(ctx context.Context, ids []string) (map[string]*models.Reply, error) {
	out := make(map[string]*models.Reply, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var replies []*models.Reply
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&replies).Error; err != nil {
		return nil, err
	}
	for _, rp := range replies {
		out[rp.ID] = rp
	}
	return out, nil
}

func (r *commentRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	if reply == nil || reply.Comment == "" || reply.Owner == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Comment{}).
			Where("id = ?", reply.Comment).
			UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCommentNotFound
		}
		return tx.Create(reply).Error
	})
}

func (r *commentRepository) LatestReplies(ctx context.Context, commentIDs []string, n int) (map[string][]*models.Reply, error) {
	out := make(map[string][]*models.Reply, len(commentIDs))
	for _, id := range commentIDs {
		var replies []*models.Reply
		err := r.db.WithContext(ctx).
			Where("comment = ?", id).
			Order("create_at DESC").
			Limit(n).
			Find(&replies).Error
		if err != nil {
			return nil, err
		}
		out[id] = replies
	}
	return out, nil
}

func (r *commentRepository) Source() feed.Source[string] {
	return feed.SourceFunc[string](func(ctx context.Context, videoID string, cursor feed.Cursor, limit int) ([]feed.Candidate, error) {
		q := r.db.WithContext(ctx).Model(&models.Comment{}).Where("video = ?", videoID)
		return keyset(q, "id", ByCreateAt, feed.Descending, cursor, limit)
	})
}

func (r *commentRepository) ReplySource() feed.Source[string] {
	return feed.SourceFunc[string](func(ctx context.Context, commentID string, cursor feed.Cursor, limit int) ([]feed.Candidate, error) {
		q := r.db.WithContext(ctx).Model(&models.Reply{}).Where("comment = ?", commentID)
		return keyset(q, "id", ByCreateAt, feed.Descending, cursor, limit)
	})
}
