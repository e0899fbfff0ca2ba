package models

import (
	"time"
)

// Membership style relations. They carry nothing beyond the pair itself.

type PlanetMember struct {
	UserID     string `gorm:"type:uuid;primaryKey"`
	PlanetName string `gorm:"size:21;primaryKey;index"`
	CreatedAt  time.Time
}

type PlanetModerator struct {
	UserID     string `gorm:"type:uuid;primaryKey"`
	PlanetName string `gorm:"size:21;primaryKey;index"`
	CreatedAt  time.Time
}

type PlanetBan struct {
	UserID     string `gorm:"type:uuid;primaryKey"`
	PlanetName string `gorm:"size:21;primaryKey;index"`
	CreatedAt  time.Time
}

type PlanetMute struct {
	UserID     string `gorm:"type:uuid;primaryKey"`
	PlanetName string `gorm:"size:21;primaryKey"`
	CreatedAt  time.Time
}

type TopicFollow struct {
	UserID    string `gorm:"type:uuid;primaryKey"`
	TopicName string `gorm:"size:50;primaryKey;index"`
	CreatedAt time.Time
}

type TopicHide struct {
	UserID    string `gorm:"type:uuid;primaryKey"`
	TopicName string `gorm:"size:50;primaryKey"`
	CreatedAt time.Time
}

type PostHide struct {
	UserID    string `gorm:"type:uuid;primaryKey"`
	PostID    string `gorm:"type:varchar(26);primaryKey"`
	CreatedAt time.Time
}

type UserFollow struct {
	FollowerID  string `gorm:"type:uuid;primaryKey"`
	FollowingID string `gorm:"type:uuid;primaryKey;index"`
	CreatedAt   time.Time
}

type UserBlock struct {
	BlockerID string `gorm:"type:uuid;primaryKey"`
	BlockedID string `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Galaxy{},
		&Planet{},
		&Topic{},
		&Post{},
		&Comment{},
		&PostEndorsement{},
		&CommentEndorsement{},
		&PostView{},
		&ReplyNotification{},
		&Report{},
		&PlanetMember{},
		&PlanetModerator{},
		&PlanetBan{},
		&PlanetMute{},
		&TopicFollow{},
		&TopicHide{},
		&PostHide{},
		&UserFollow{},
		&UserBlock{},
	}
}
