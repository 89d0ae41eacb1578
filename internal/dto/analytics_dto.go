package dto

import (
	"time"

	"github.com/google/uuid"
)

type ViewerBreakdownRow struct {
	ViewerID      uuid.UUID `json:"viewer_id"`
	Username      string    `json:"username"`
	WatchDuration int       `json:"watch_duration"`
	FullyWatched  bool      `json:"fully_watched"`
	LastWatchedAt time.Time `json:"last_watched_at"`
}

type DailyTrendRow struct {
	Date         string `json:"date"`
	ActiveViews  int    `json:"active_views"`
	WatchSeconds int    `json:"watch_seconds"`
}

type VideoAnalyticsResponse struct {
	VideoID             uuid.UUID            `json:"video_id"`
	Title               string               `json:"title"`
	TotalViews          int                  `json:"total_views"`
	UniqueViewers       int                  `json:"unique_viewers"`
	TotalWatchSeconds   int                  `json:"total_watch_seconds"`
	AverageWatchSeconds float64              `json:"average_watch_seconds"`
	CompletedViews      int                  `json:"completed_views"`
	CompletionRate      float64              `json:"completion_rate"`
	TotalPointsAwarded  int                  `json:"total_points_awarded"`
	ViewerBreakdown     []ViewerBreakdownRow `json:"viewer_breakdown"`
	DailyTrend          []DailyTrendRow      `json:"daily_trend"`
}

type VideoAnalyticsSummary struct {
	VideoID            uuid.UUID `json:"video_id"`
	Title              string    `json:"title"`
	TotalViews         int       `json:"total_views"`
	TotalWatchSeconds  int       `json:"total_watch_seconds"`
	CompletedViews     int       `json:"completed_views"`
	TotalPointsAwarded int       `json:"total_points_awarded"`
}

type CreatorAnalyticsResponse struct {
	TotalVideos        int                     `json:"total_videos"`
	TotalViews         int                     `json:"total_views"`
	TotalWatchSeconds  int                     `json:"total_watch_seconds"`
	TotalPointsAwarded int                     `json:"total_points_awarded"`
	Videos             []VideoAnalyticsSummary `json:"videos"`
}

type TrendingVideoEntry struct {
	Video              VideoResponse `json:"video"`
	RecentViews        int           `json:"recent_views"`
	RecentWatchSeconds int           `json:"recent_watch_seconds"`
}

type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Points   int       `json:"points"`
}
