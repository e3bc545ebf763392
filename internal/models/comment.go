package models

import "gorm.io/gorm"

type Comment struct {
	ID         string  `gorm:"primaryKey;size:36" json:"comment_id"`
	Video      string  `gorm:"size:36;index:idx_comments_video_create_at,priority:1" json:"video_id"`
	Author     string  `gorm:"size:36;index" json:"-"`
	Content    string  `gorm:"type:text" json:"content"`
	ReplyCount int     `gorm:"default:0" json:"reply"`
	Like       int     `gorm:"column:like_count;default:0" json:"like"`
	CreateAt   float64 `gorm:"index:idx_comments_video_create_at,priority:2" json:"create_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.CreateAt == 0 {
		c.CreateAt = Timestamp()
	}
	return nil
}

// Reply answers a comment. Owner wrote it.
type Reply struct {
	ID       string  `gorm:"primaryKey;size:36" json:"reply_id"`
	Comment  string  `gorm:"size:36;index:idx_replies_comment_create_at,priority:1" json:"comment_id"`
	Owner    string  `gorm:"size:36;index" json:"-"`
	Content  string  `gorm:"type:text" json:"content"`
	CreateAt float64 `gorm:"index:idx_replies_comment_create_at,priority:2" json:"create_at"`
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	if r.CreateAt == 0 {
		r.CreateAt = Timestamp()
	}
	return nil
}
