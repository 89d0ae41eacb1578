package repository

import (
	"context"

	"anoa.com/creatorviewer/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchlistRepository interface {
	Add(ctx context.Context, userID, videoID uuid.UUID) error
	Remove(ctx context.Context, userID, videoID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.WatchlistItem, error)
}

type watchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

// Add is an upsert; re-adding an already listed video is a no-op.
func (r *watchlistRepository) Add(ctx context.Context, userID, videoID uuid.UUID) error {
	item := &model.WatchlistItem{
		UserID:  userID,
		VideoID: videoID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
			DoNothing: true,
		}).
		Create(item).Error
}

func (r *watchlistRepository) Remove(ctx context.Context, userID, videoID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Delete(&model.WatchlistItem{}).Error
}

func (r *watchlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.WatchlistItem, error) {
	var items []*model.WatchlistItem
	if err := r.db.WithContext(ctx).
		Preload("Video").
		Preload("Video.Creator").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}
