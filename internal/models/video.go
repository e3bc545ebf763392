package models

import "gorm.io/gorm"

const (
	VideoUploading = "uploading"
	VideoOnline    = "online"
	VideoOffline   = "offline"
)

// Video is a recorded clip. CreateAt orders most feeds, ReleaseTime orders the elite
// feed, Vv (view count) orders the hot feeds and UpdateAt orders the partner list.
type Video struct {
	ID           string  `gorm:"primaryKey;size:36" json:"video_id"`
	Author       string  `gorm:"size:36;index:idx_videos_author_create_at,priority:1" json:"-"`
	Game         string  `gorm:"size:36;index:idx_videos_game_create_at,priority:1;index:idx_videos_game_vv,priority:1" json:"-"`
	Title        string  `json:"title"`
	Duration     int     `json:"duration"`
	Ratio        string  `json:"ratio"`
	Cover        string  `json:"cover"`
	URL          string  `json:"url"`
	Status       string  `gorm:"index;default:uploading" json:"status"`
	Vv           int64   `gorm:"default:0;index:idx_videos_game_vv,priority:2" json:"vv"`
	LikeCount    int64   `gorm:"default:0" json:"like"`
	CommentCount int64   `gorm:"default:0" json:"comment_count"`
	EventID      string  `gorm:"index" json:"event_id,omitempty"`
	IsElite      bool    `gorm:"default:false" json:"is_elite"`
	ReleaseTime  float64 `gorm:"index" json:"release_time"`
	CreateAt     float64 `gorm:"index;index:idx_videos_author_create_at,priority:2;index:idx_videos_game_create_at,priority:2" json:"create_at"`
	UpdateAt     float64 `gorm:"index" json:"update_at"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	if v.CreateAt == 0 {
		v.CreateAt = Timestamp()
	}
	if v.UpdateAt == 0 {
		v.UpdateAt = v.CreateAt
	}
	return nil
}

func (v *Video) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("UpdateAt", Timestamp())
	return nil
}

func (v *Video) IsOnline() bool { return v.Status == VideoOnline }

// IsLiveReplay reports whether the video was recorded from a live event.
func (v *Video) IsLiveReplay() bool { return v.EventID != "" }

// UserFaverVideo is a favorite: Source (user) saved Target (video).
type UserFaverVideo struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Source   string  `gorm:"size:36;uniqueIndex:idx_faver_pair;index:idx_faver_source_create_at,priority:1"`
	Target   string  `gorm:"size:36;uniqueIndex:idx_faver_pair"`
	CreateAt float64 `gorm:"index:idx_faver_source_create_at,priority:2"`
}

func (f *UserFaverVideo) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	if f.CreateAt == 0 {
		f.CreateAt = Timestamp()
	}
	return nil
}

// UserLikeVideo is a like: Source (user) liked Target (video).
type UserLikeVideo struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Source   string  `gorm:"size:36;uniqueIndex:idx_like_pair"`
	Target   string  `gorm:"size:36;uniqueIndex:idx_like_pair;index"`
	CreateAt float64 `gorm:"index"`
}

func (l *UserLikeVideo) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	if l.CreateAt == 0 {
		l.CreateAt = Timestamp()
	}
	return nil
}

// VideoCategory is an editorial video category inside a game.
type VideoCategory struct {
	ID       string  `gorm:"primaryKey;size:36" json:"category_id"`
	Name     string  `json:"name"`
	Icon     string  `json:"icon"`
	Order    int     `gorm:"column:order_no" json:"-"`
	CreateAt float64 `json:"create_at"`
}

func (c *VideoCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.CreateAt == 0 {
		c.CreateAt = Timestamp()
	}
	return nil
}

// CategoryVideo places a video of a game in a VideoCategory.
type CategoryVideo struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Category string  `gorm:"size:36;index:idx_category_video_lookup,priority:1;uniqueIndex:idx_category_video_pair,priority:1"`
	Game     string  `gorm:"size:36;index:idx_category_video_lookup,priority:2;uniqueIndex:idx_category_video_pair,priority:2"`
	Video    string  `gorm:"size:36;index;uniqueIndex:idx_category_video_pair,priority:3"`
	CreateAt float64 `gorm:"index:idx_category_video_lookup,priority:3"`
}

func (c *CategoryVideo) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.CreateAt == 0 {
		c.CreateAt = Timestamp()
	}
	return nil
}

// VideoTopic is an editorial topic.
type VideoTopic struct {
	ID          string  `gorm:"primaryKey;size:36" json:"topic_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Cover       string  `json:"cover"`
	Order       int     `gorm:"column:order_no" json:"-"`
	CreateAt    float64 `json:"create_at"`
}

func (t *VideoTopic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	if t.CreateAt == 0 {
		t.CreateAt = Timestamp()
	}
	return nil
}

// TopicVideo places a video in a topic. Its CreateAt orders the topic feed.
type TopicVideo struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Topic    string  `gorm:"size:36;uniqueIndex:idx_topic_video_pair;index:idx_topic_video_create_at,priority:1"`
	Video    string  `gorm:"size:36;uniqueIndex:idx_topic_video_pair"`
	CreateAt float64 `gorm:"index:idx_topic_video_create_at,priority:2"`
}

func (t *TopicVideo) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	if t.CreateAt == 0 {
		t.CreateAt = Timestamp()
	}
	return nil
}

// EditorVideo is an editor's pick, served in Order.
type EditorVideo struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Video    string  `gorm:"size:36;uniqueIndex"`
	Order    int     `gorm:"column:order_no;index"`
	CreateAt float64
}

func (e *EditorVideo) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	if e.CreateAt == 0 {
		e.CreateAt = Timestamp()
	}
	return nil
}
