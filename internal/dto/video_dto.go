package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateVideoInput struct {
	// Accepts a bare YouTube ID or a full watch/short URL.
	YouTubeID       string  `json:"youtube_id" binding:"required"`
	Title           string  `json:"title" binding:"required,max=200"`
	Description     *string `json:"description"`
	PointsPerMinute *int    `json:"points_per_minute" binding:"omitempty,gte=0"`
	DurationSeconds *int    `json:"duration_seconds" binding:"omitempty,gte=0"`
}

type UpdateVideoInput struct {
	Title           *string `json:"title" binding:"omitempty,max=200"`
	Description     *string `json:"description"`
	PointsPerMinute *int    `json:"points_per_minute" binding:"omitempty,gte=0"`
	DurationSeconds *int    `json:"duration_seconds" binding:"omitempty,gte=0"`
}

type VideoResponse struct {
	ID              uuid.UUID `json:"id"`
	YouTubeID       string    `json:"youtube_id"`
	YouTubeURL      string    `json:"youtube_url"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	CreatorID       uuid.UUID `json:"creator_id"`
	CreatorUsername string    `json:"creator_username,omitempty"`
	PointsPerMinute int       `json:"points_per_minute"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	ThumbnailURL    *string   `json:"thumbnail_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type ListVideosFilter struct {
	Skip  int `form:"skip" binding:"min=0"`
	Limit int `form:"limit" binding:"min=0,max=100"`
}

type SearchVideosFilter struct {
	Query string `form:"q" binding:"required"`
	Limit int    `form:"limit" binding:"min=0,max=50"`
}
