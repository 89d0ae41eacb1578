package dto

import "time"

type WatchlistItemResponse struct {
	Video   VideoResponse `json:"video"`
	AddedAt time.Time     `json:"added_at"`
}
