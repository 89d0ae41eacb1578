package dto

import (
	"time"

	"github.com/google/uuid"
)

type WatchReportInput struct {
	// Cumulative watch time in seconds, as counted by the client while the
	// player was actively playing. Pointer so a report of 0 seconds still
	// binds; only a missing field is rejected.
	WatchDuration *int `json:"watch_duration" binding:"required,gte=0"`

	// Optional total video length observed by the player, in seconds.
	VideoDuration *int `json:"video_duration" binding:"omitempty,gte=0"`
}

type WatchReportResponse struct {
	Outcome              string  `json:"outcome"`
	PointsEarned         int     `json:"points_earned"`
	AlreadyEarned        bool    `json:"already_earned"`
	ContinuingPoints     bool    `json:"continuing_points"`
	FullyWatched         bool    `json:"fully_watched"`
	WatchDuration        int     `json:"watch_duration"`
	VideoDuration        int     `json:"video_duration,omitempty"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type WatchHistoryEntry struct {
	VideoID       uuid.UUID `json:"video_id"`
	VideoTitle    string    `json:"video_title"`
	WatchDuration int       `json:"watch_duration"`
	FullyWatched  bool      `json:"fully_watched"`
	PointsEarned  int       `json:"points_earned"`
	LastWatchedAt time.Time `json:"last_watched_at"`
}

type UserPointsResponse struct {
	TotalPoints  int                 `json:"total_points"`
	ViewHistory  []WatchHistoryEntry `json:"view_history"`
	RecentLedger []PointLogEntry     `json:"recent_ledger"`
}

type PointLogEntry struct {
	Reason    string     `json:"reason"`
	Points    int        `json:"points"`
	VideoID   *uuid.UUID `json:"video_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
