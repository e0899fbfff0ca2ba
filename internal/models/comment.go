package models

import (
	"time"

	"comet/internal/utils"

	"gorm.io/gorm"
)

type Comment struct {
	ID               string     `gorm:"type:varchar(26);primaryKey" json:"id"`
	PostID           string     `gorm:"type:varchar(26);not null;index" json:"post_id"`
	AuthorID         string     `gorm:"type:uuid;not null;index" json:"author_id"`
	ParentCommentID  *string    `gorm:"type:varchar(26);index" json:"parent_comment_id"` // nil for top-level comments
	RootCommentID    *string    `gorm:"type:varchar(26);index" json:"root_comment_id"`
	TextContent      string     `gorm:"type:text;not null" json:"text_content"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	EditedAt         *time.Time `json:"edited_at,omitempty"`
	EndorsementCount int        `gorm:"default:0;not null" json:"endorsement_count"`
	Deleted          bool       `gorm:"default:false;not null" json:"deleted"`
	Removed          bool       `gorm:"default:false;not null" json:"removed"`
	RemovedReason    string     `json:"removed_reason,omitempty"`

	IsEndorsed bool `gorm:"-" json:"is_endorsed"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.NewID()
	}
	return nil
}
