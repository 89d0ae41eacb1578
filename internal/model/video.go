package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Video struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	YouTubeID   string    `gorm:"column:youtube_id;size:20;uniqueIndex;not null" json:"youtube_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatorID   uuid.UUID `gorm:"type:uuid;index;not null" json:"creator_id"`
	Creator     User      `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`

	// Reward rate paid once when the first minute is crossed; bonus minutes
	// pay 10% of this.
	PointsPerMinute int `gorm:"not null;default:10" json:"points_per_minute"`

	// Unknown until discovered from playback or set by the creator.
	DurationSeconds *int `json:"duration_seconds,omitempty"`

	ThumbnailURL *string   `gorm:"type:text" json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// YouTubeURL returns the canonical watch URL for the stored video ID.
func (v *Video) YouTubeURL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.YouTubeID)
}
