package models

import (
	"time"
)

type Report struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     string    `gorm:"type:varchar(26);not null;index" json:"post_id"`
	ReporterID string    `gorm:"type:uuid;not null;index" json:"reporter_id"`
	PlanetName *string   `gorm:"size:21;index" json:"planet_name,omitempty"`
	Reason     string    `gorm:"size:200;not null" json:"reason"`
	Resolved   bool      `gorm:"default:false;not null" json:"resolved"`
	CreatedAt  time.Time `json:"created_at"`
}
