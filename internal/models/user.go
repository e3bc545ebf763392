package models

import "gorm.io/gorm"

// User is a wanx account. Accounts created through Migu carry the Migu open id.
type User struct {
	ID            string  `gorm:"primaryKey;size:36" json:"user_id"`
	Name          string  `gorm:"index" json:"name"`
	Nickname      string  `json:"nickname"`
	Phone         string  `gorm:"index" json:"phone,omitempty"`
	Gender        int     `json:"gender"`
	Province      string  `json:"province,omitempty"`
	Photo         string  `json:"photo,omitempty"`
	MiguOpenID    string  `gorm:"column:partner_migu_id;index" json:"-"`
	MiguPassID    string  `gorm:"column:partner_migu_passid" json:"-"`
	VideoCount    int     `gorm:"default:0" json:"video_count"`
	FollowerCount int     `gorm:"default:0" json:"follower_count"`
	CreateAt      float64 `gorm:"index" json:"create_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.CreateAt == 0 {
		u.CreateAt = Timestamp()
	}
	return nil
}

// FriendShip means Source follows Target.
type FriendShip struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Source   string  `gorm:"size:36;uniqueIndex:idx_friendship_pair"`
	Target   string  `gorm:"size:36;uniqueIndex:idx_friendship_pair;index"`
	CreateAt float64 `gorm:"index"`
}

func (f *FriendShip) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	if f.CreateAt == 0 {
		f.CreateAt = Timestamp()
	}
	return nil
}

// UserSubGame is a game subscription.
type UserSubGame struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Source   string  `gorm:"size:36;uniqueIndex:idx_user_sub_game_pair"`
	Target   string  `gorm:"size:36;uniqueIndex:idx_user_sub_game_pair"`
	CreateAt float64 `gorm:"index"`
}

func (s *UserSubGame) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	if s.CreateAt == 0 {
		s.CreateAt = Timestamp()
	}
	return nil
}
