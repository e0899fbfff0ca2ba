package models

import (
	"time"
)

// PostEndorsement rows are never deleted, toggling flips Active.
type PostEndorsement struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	PostID    string    `gorm:"type:varchar(26);primaryKey;index" json:"post_id"`
	Active    bool      `gorm:"default:true;not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentEndorsement struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CommentID string    `gorm:"type:varchar(26);primaryKey;index" json:"comment_id"`
	Active    bool      `gorm:"default:true;not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// PostView remembers how many comments a post had when the user last opened it.
type PostView struct {
	UserID           string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	PostID           string    `gorm:"type:varchar(26);primaryKey" json:"post_id"`
	LastCommentCount int       `gorm:"default:0;not null" json:"last_comment_count"`
	CreatedAt        time.Time `json:"created_at"`
}
