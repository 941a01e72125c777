package models

import (
	"strings"
	"time"
)

// PropertyImage represents an image associated with a property
type PropertyImage struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint64    `gorm:"not null;index" json:"property_id"`
	ImageURL   string    `gorm:"type:text;not null" json:"image_url"`
	SortOrder  int       `gorm:"not null;default:0;index" json:"sort_order"`
	MediaKind  string    `gorm:"type:varchar(20)" json:"media_kind,omitempty"` // "", photo, video, tour
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for PropertyImage
func (PropertyImage) TableName() string {
	return "property_images"
}

// Media kinds that are never used as display images
const (
	MediaKindVideo = "video"
	MediaKindTour  = "tour"
)

// IsMotionMedia reports whether the media kind tags a video or virtual tour
func IsMotionMedia(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case MediaKindVideo, MediaKindTour:
		return true
	}
	return false
}
