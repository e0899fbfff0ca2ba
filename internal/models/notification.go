package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReplyNotification struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	ToUserID        string    `gorm:"type:uuid;not null;index" json:"to_user_id"` // Receiver
	FromUserID      string    `gorm:"type:uuid;not null" json:"from_user_id"`     // Sender
	PostID          string    `gorm:"type:varchar(26);not null" json:"post_id"`
	CommentID       string    `gorm:"type:varchar(26);not null" json:"comment_id"`
	ParentCommentID *string   `gorm:"type:varchar(26)" json:"parent_comment_id,omitempty"`
	Read            bool      `gorm:"default:false;not null;index" json:"read"`
	CreatedAt       time.Time `json:"created_at"`
}

func (n *ReplyNotification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
