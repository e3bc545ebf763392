package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&FriendShip{},
		&UserSubGame{},
		&Game{},
		&Category{},
		&CategoryGame{},
		&GameGrid{},
		&Video{},
		&UserFaverVideo{},
		&UserLikeVideo{},
		&VideoCategory{},
		&CategoryVideo{},
		&VideoTopic{},
		&TopicVideo{},
		&EditorVideo{},
		&Comment{},
		&Reply{},
		&ReportVideo{},
		&ReportConfig{},
	}
}
