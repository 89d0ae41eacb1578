package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"anoa.com/creatorviewer/internal/dto"
	"anoa.com/creatorviewer/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardCacheKey = "leaderboard:viewers"
	leaderboardSize     = 10
)

type LeaderboardService interface {
	TopViewers(ctx context.Context) ([]dto.LeaderboardEntry, error)
}

type leaderboardService struct {
	userRepo repository.UserRepository
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewLeaderboardService(userRepo repository.UserRepository, rdb *redis.Client, cacheTTL time.Duration) LeaderboardService {
	return &leaderboardService{
		userRepo: userRepo,
		rdb:      rdb,
		cacheTTL: cacheTTL,
	}
}

// TopViewers ranks viewers by points balance. Results are cached briefly in
// Redis; with no Redis client every call hits the database.
func (s *leaderboardService) TopViewers(ctx context.Context) ([]dto.LeaderboardEntry, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, leaderboardCacheKey).Result()
		if err == nil {
			var entries []dto.LeaderboardEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	users, err := s.userRepo.TopViewersByPoints(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(users))
	for i, user := range users {
		entries = append(entries, dto.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   user.ID,
			Username: user.Username,
			Points:   user.Points,
		})
	}

	if s.rdb != nil {
		payload, err := json.Marshal(entries)
		if err == nil {
			if err := s.rdb.Set(ctx, leaderboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				log.Printf("failed to cache leaderboard: %v", err)
			}
		}
	}

	return entries, nil
}
