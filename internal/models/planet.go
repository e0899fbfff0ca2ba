package models

import (
	"time"
)

type Galaxy struct {
	Name     string `gorm:"size:32;primaryKey" json:"name"`
	FullName string `gorm:"not null" json:"full_name"`
	Icon     string `json:"icon"`
}

type Planet struct {
	Name               string    `gorm:"size:21;primaryKey" json:"name"`
	CustomName         string    `gorm:"size:50" json:"custom_name,omitempty"`
	Description        string    `gorm:"type:text;not null" json:"description"`
	GalaxyName         string    `gorm:"size:32;not null;index" json:"galaxy_name"`
	CreatorID          string    `gorm:"type:uuid;index" json:"creator_id"`
	CreatedAt          time.Time `json:"created_at"`
	AllowTextPosts     bool      `gorm:"default:true;not null" json:"allow_text_posts"`
	AllowLinkPosts     bool      `gorm:"default:true;not null" json:"allow_link_posts"`
	AllowImagePosts    bool      `gorm:"default:true;not null" json:"allow_image_posts"`
	DefaultSort        string    `gorm:"size:10;default:'HOT';not null" json:"default_sort"`
	DefaultCommentSort string    `gorm:"size:10;default:'TOP';not null" json:"default_comment_sort"`
	AvatarImageURL     string    `json:"avatar_image_url,omitempty"`
	CardImageURL       string    `json:"card_image_url,omitempty"`
	ThemeColor         string    `gorm:"size:7" json:"theme_color,omitempty"`
}

func (p *Planet) Allows(t PostType) bool {
	switch t {
	case PostTypeText:
		return p.AllowTextPosts
	case PostTypeLink:
		return p.AllowLinkPosts
	case PostTypeImage:
		return p.AllowImagePosts
	}
	return false
}

type Topic struct {
	Name      string    `gorm:"size:50;primaryKey" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
