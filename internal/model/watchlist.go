package model

import (
	"time"

	"github.com/google/uuid"
)

// WatchlistItem marks a video a user saved to watch later.
type WatchlistItem struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_watchlist_user_video,priority:1;not null" json:"user_id"`
	VideoID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_watchlist_user_video,priority:2;not null" json:"video_id"`
	User    User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Video   Video     `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"video"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
