package service

import (
	"context"
	"errors"
	"net/http"

	"anoa.com/creatorviewer/internal/dto"
	"anoa.com/creatorviewer/internal/repository"
	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WatchlistService interface {
	Add(ctx context.Context, userID, videoID uuid.UUID) error
	Remove(ctx context.Context, userID, videoID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]dto.WatchlistItemResponse, error)
}

type watchlistService struct {
	repo      repository.WatchlistRepository
	videoRepo repository.VideoRepository
}

func NewWatchlistService(repo repository.WatchlistRepository, videoRepo repository.VideoRepository) WatchlistService {
	return &watchlistService{
		repo:      repo,
		videoRepo: videoRepo,
	}
}

func (s *watchlistService) Add(ctx context.Context, userID, videoID uuid.UUID) error {
	if _, err := s.videoRepo.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(http.StatusNotFound, "video not found", apperror.ErrNotFound)
		}
		return err
	}

	return s.repo.Add(ctx, userID, videoID)
}

func (s *watchlistService) Remove(ctx context.Context, userID, videoID uuid.UUID) error {
	return s.repo.Remove(ctx, userID, videoID)
}

func (s *watchlistService) List(ctx context.Context, userID uuid.UUID) ([]dto.WatchlistItemResponse, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.WatchlistItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.WatchlistItemResponse{
			Video:   toVideoResponse(&item.Video, item.Video.Creator.Username),
			AddedAt: item.CreatedAt,
		})
	}

	return out, nil
}
