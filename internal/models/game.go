package models

import "gorm.io/gorm"

// Game is a game videos are recorded from. Bid is the Migu game-hall id;
// an empty Bid means the game is not listed in the hall.
type Game struct {
	ID       string  `gorm:"primaryKey;size:36" json:"game_id"`
	Name     string  `json:"name"`
	Bid      string  `gorm:"index" json:"bid"`
	URL      string  `json:"url"`
	Icon     string  `json:"icon"`
	Cover    string  `json:"cover"`
	Intro    string  `json:"intro"`
	Status   string  `gorm:"default:online" json:"status"`
	CreateAt float64 `json:"create_at"`
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = generateUUID()
	}
	if g.CreateAt == 0 {
		g.CreateAt = Timestamp()
	}
	return nil
}

// IsHallGame reports whether the game is listed in the Migu game hall.
func (g *Game) IsHallGame() bool {
	return g != nil && g.Bid != ""
}

// Category is a game tag.
type Category struct {
	ID       string  `gorm:"primaryKey;size:36" json:"tag_id"`
	Name     string  `json:"name"`
	Order    int     `gorm:"column:order_no" json:"-"`
	CreateAt float64 `json:"create_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.CreateAt == 0 {
		c.CreateAt = Timestamp()
	}
	return nil
}

// CategoryGame links a tag to a game.
type CategoryGame struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Category string  `gorm:"size:36;uniqueIndex:idx_category_game_pair"`
	Game     string  `gorm:"size:36;uniqueIndex:idx_category_game_pair"`
	CreateAt float64 `gorm:"index"`
}

func (c *CategoryGame) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.CreateAt == 0 {
		c.CreateAt = Timestamp()
	}
	return nil
}

// GameGrid is a home-screen grid entry. Grids named like the VIP zone drive the
// Migu pay "vip_action".
type GameGrid struct {
	ID              string      `gorm:"primaryKey;size:36"`
	Name            string      `gorm:"index"`
	OS              string      `gorm:"column:os"`
	VersionCodeMin  int         `gorm:"column:version_code_min"`
	VersionCodeMax  int         `gorm:"column:version_code_max"`
	Channels        StringArray `gorm:"type:text"`
	Login           string      // "login" restricts the grid to signed-in group members
	Group           string      `gorm:"column:group_id;size:36"`
	GroupMembers    StringArray `gorm:"type:text"`
	Province        StringArray `gorm:"type:text"`
	Action          string
	Order           int `gorm:"column:order_no"`
}

func (g *GameGrid) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = generateUUID()
	}
	return nil
}

// HasMember reports whether uid is in the grid's user group
func (g *GameGrid) HasMember(uid string) bool {
	return g.GroupMembers.Contains(uid)
}
