package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PointsNotifier fans point credits out to live clients. The accrual engine
// treats it as fire-and-forget; delivery is best effort.
type PointsNotifier interface {
	PublishCredit(ctx context.Context, userID, videoID uuid.UUID, points, totalPoints int)
}

type PointsCreditEvent struct {
	VideoID      string `json:"video_id"`
	PointsEarned int    `json:"points_earned"`
	TotalPoints  int    `json:"total_points"`
}

type redisPointsNotifier struct {
	redisClient *redis.Client
}

func NewPointsNotifier(redisClient *redis.Client) PointsNotifier {
	return &redisPointsNotifier{redisClient: redisClient}
}

// PointsChannel is the pubsub channel carrying a user's credit events.
func PointsChannel(userID string) string {
	return fmt.Sprintf("points:user:%s", userID)
}

func (n *redisPointsNotifier) PublishCredit(ctx context.Context, userID, videoID uuid.UUID, points, totalPoints int) {
	if n.redisClient == nil {
		return
	}

	payload, err := json.Marshal(PointsCreditEvent{
		VideoID:      videoID.String(),
		PointsEarned: points,
		TotalPoints:  totalPoints,
	})
	if err != nil {
		return
	}

	n.redisClient.Publish(ctx, PointsChannel(userID.String()), payload)
}
