package repository

import (
	"context"

	"anoa.com/creatorviewer/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Video, error)
	FindByYouTubeID(ctx context.Context, youtubeID string) (*model.Video, error)
	FindByCreator(ctx context.Context, creatorID uuid.UUID, skip, limit int) ([]*model.Video, error)
	FindDiscover(ctx context.Context, skip, limit int) ([]*model.Video, error)
	Update(ctx context.Context, video *model.Video) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetDurationIfUnknown(ctx context.Context, id uuid.UUID, durationSeconds int) error
}

type videoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *videoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	var video model.Video
	if err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("id = ?", id).
		First(&video).Error; err != nil {
		return nil, err
	}

	return &video, nil
}

func (r *videoRepository) FindByYouTubeID(ctx context.Context, youtubeID string) (*model.Video, error) {
	var video model.Video
	if err := r.db.WithContext(ctx).
		Where("youtube_id = ?", youtubeID).
		First(&video).Error; err != nil {
		return nil, err
	}

	return &video, nil
}

func (r *videoRepository) FindByCreator(ctx context.Context, creatorID uuid.UUID, skip, limit int) ([]*model.Video, error) {
	var videos []*model.Video
	if err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&videos).Error; err != nil {
		return nil, err
	}

	return videos, nil
}

func (r *videoRepository) FindDiscover(ctx context.Context, skip, limit int) ([]*model.Video, error) {
	var videos []*model.Video
	if err := r.db.WithContext(ctx).
		Preload("Creator").
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&videos).Error; err != nil {
		return nil, err
	}

	return videos, nil
}

func (r *videoRepository) Update(ctx context.Context, video *model.Video) error {
	return r.db.WithContext(ctx).Save(video).Error
}

func (r *videoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Video{}, "id = ?", id).Error
}

// SetDurationIfUnknown backfills a duration discovered from playback; it
// never overwrites a duration that is already known.
func (r *videoRepository) SetDurationIfUnknown(ctx context.Context, id uuid.UUID, durationSeconds int) error {
	return r.db.WithContext(ctx).Model(&model.Video{}).
		Where("id = ? AND duration_seconds IS NULL", id).
		UpdateColumn("duration_seconds", durationSeconds).Error
}
