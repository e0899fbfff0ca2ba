package models

import (
	"time"

	"comet/internal/utils"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type PostType string

const (
	PostTypeText  PostType = "TEXT"
	PostTypeLink  PostType = "LINK"
	PostTypeImage PostType = "IMAGE"
)

func (t PostType) Valid() bool {
	switch t {
	case PostTypeText, PostTypeLink, PostTypeImage:
		return true
	}
	return false
}

type Post struct {
	ID               string         `gorm:"type:varchar(26);primaryKey" json:"id"`
	Title            string         `gorm:"size:300;not null" json:"title"`
	Type             PostType       `gorm:"type:varchar(10);not null;default:'TEXT'" json:"type"`
	Link             string         `json:"link,omitempty"`
	TextContent      string         `gorm:"type:text" json:"text_content"`
	AuthorID         string         `gorm:"type:uuid;not null;index" json:"author_id"`
	PlanetName       *string        `gorm:"size:21;index" json:"planet_name,omitempty"`
	Topics           pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"topics"` // 冗余标签列，用于隐藏话题过滤
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
	EditedAt         *time.Time     `json:"edited_at,omitempty"`
	EditHistory      pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"-"`
	Sticky           bool           `gorm:"default:false;not null" json:"sticky"`
	EndorsementCount int            `gorm:"default:0;not null" json:"endorsement_count"`
	CommentCount     int            `gorm:"default:0;not null" json:"comment_count"`
	ThumbnailURL     string         `json:"thumbnail_url,omitempty"`
	Domain           string         `json:"domain,omitempty"`
	Deleted          bool           `gorm:"default:false;not null" json:"deleted"`
	Removed          bool           `gorm:"default:false;not null" json:"removed"`
	RemovedReason    string         `json:"removed_reason,omitempty"`
	Reported         bool           `gorm:"default:false;not null" json:"-"`

	// 非数据库字段，用于查询时填充
	IsEndorsed bool `gorm:"-" json:"is_endorsed"`
	IsHidden   bool `gorm:"-" json:"is_hidden"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.NewID()
	}
	return nil
}

func (p *Post) InPlanet(name string) bool {
	return p.PlanetName != nil && *p.PlanetName == name
}
