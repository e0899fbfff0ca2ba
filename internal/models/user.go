package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                  string     `gorm:"type:uuid;primaryKey" json:"id"`
	Username            string     `gorm:"size:20;not null;uniqueIndex" json:"username"`
	Email               string     `gorm:"size:255" json:"-"`
	PasswordHash        string     `gorm:"not null" json:"-"`
	Bio                 string     `gorm:"size:160" json:"bio"`
	ProfilePicURL       string     `json:"profile_pic_url"`
	Admin               bool       `gorm:"default:false;not null" json:"admin"`
	Banned              bool       `gorm:"default:false;not null" json:"banned"`
	BanReason           string     `json:"ban_reason,omitempty"`
	EndorsementCount    int        `gorm:"default:0;not null" json:"endorsement_count"`
	TokenVersion        int        `gorm:"default:0;not null" json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	LastLogin           *time.Time `json:"-"`
	LastPostedAt        *time.Time `json:"-"`
	LastCommentedAt     *time.Time `json:"-"`
	LastUploadedImageAt *time.Time `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
