package repository

import (
	"context"

	"anoa.com/creatorviewer/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PointLogRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PointLog, error)
	SumAwardedForVideo(ctx context.Context, videoID uuid.UUID) (int, error)
}

type pointLogRepository struct {
	db *gorm.DB
}

func NewPointLogRepository(db *gorm.DB) PointLogRepository {
	return &pointLogRepository{db: db}
}

func (r *pointLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PointLog, error) {
	var logs []*model.PointLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}

	return logs, nil
}

// SumAwardedForVideo totals the watch credits ever paid out for a video.
func (r *pointLogRepository) SumAwardedForVideo(ctx context.Context, videoID uuid.UUID) (int, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.PointLog{}).
		Select("COALESCE(SUM(points), 0)").
		Where("video_id = ? AND reason IN ?", videoID, []string{model.ReasonBaseReward, model.ReasonBonusReward}).
		Scan(&sum).Error
	return int(sum), err
}
