package repository

import (
	"context"
	"time"

	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchRepository interface {
	// FindOrCreate returns the WatchRecord for the pair, creating a zeroed
	// one on first report. Concurrent creates collapse onto one row via the
	// unique (viewer_id, video_id) index.
	FindOrCreate(ctx context.Context, viewerID, videoID uuid.UUID) (*model.WatchRecord, error)
	Find(ctx context.Context, viewerID, videoID uuid.UUID) (*model.WatchRecord, error)

	// SaveWithCredits persists the mutated record and applies the ledger
	// credits (PointLog rows plus the viewer balance increment) in one
	// transaction. The write only lands if the stored version still equals
	// expectedVersion; otherwise apperror.ErrConflict is returned and
	// nothing is applied. Returns the viewer's balance after the credits.
	SaveWithCredits(ctx context.Context, rec *model.WatchRecord, expectedVersion int64, credits []model.PointLog) (int, error)

	ListByViewer(ctx context.Context, viewerID uuid.UUID) ([]*model.WatchRecord, error)
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*model.WatchRecord, error)
	ListSince(ctx context.Context, since time.Time) ([]*model.WatchRecord, error)
}

type watchRepository struct {
	db *gorm.DB
}

func NewWatchRepository(db *gorm.DB) WatchRepository {
	return &watchRepository{db: db}
}

func (r *watchRepository) FindOrCreate(ctx context.Context, viewerID, videoID uuid.UUID) (*model.WatchRecord, error) {
	rec := &model.WatchRecord{
		ID:       uuid.New(),
		ViewerID: viewerID,
		VideoID:  videoID,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "video_id"}},
			DoNothing: true,
		}).
		Create(rec).Error; err != nil {
		return nil, err
	}

	// Re-read: on conflict the insert was a no-op and rec holds stale zeroes.
	return r.Find(ctx, viewerID, videoID)
}

func (r *watchRepository) Find(ctx context.Context, viewerID, videoID uuid.UUID) (*model.WatchRecord, error) {
	var rec model.WatchRecord
	if err := r.db.WithContext(ctx).
		Where("viewer_id = ? AND video_id = ?", viewerID, videoID).
		First(&rec).Error; err != nil {
		return nil, err
	}

	return &rec, nil
}

func (r *watchRepository) SaveWithCredits(ctx context.Context, rec *model.WatchRecord, expectedVersion int64, credits []model.PointLog) (int, error) {
	var balance int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.WatchRecord{}).
			Where("id = ? AND version = ?", rec.ID, expectedVersion).
			Updates(map[string]interface{}{
				"cumulative_watch_seconds":   rec.CumulativeWatchSeconds,
				"base_points_awarded":        rec.BasePointsAwarded,
				"bonus_points_awarded_total": rec.BonusPointsAwardedTotal,
				"fully_watched":              rec.FullyWatched,
				"last_report_at":             rec.LastReportAt,
				"version":                    expectedVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race against a concurrent report for the same pair.
			return apperror.ErrConflict
		}

		total := 0
		for _, c := range credits {
			total += c.Points
		}
		if len(credits) > 0 {
			if err := tx.Create(&credits).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.User{}).
				Where("id = ?", rec.ViewerID).
				UpdateColumn("points", gorm.Expr("points + ?", total)).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.User{}).
			Select("points").
			Where("id = ?", rec.ViewerID).
			Scan(&balance).Error
	})
	if err != nil {
		return 0, err
	}

	rec.Version = expectedVersion + 1
	return balance, nil
}

func (r *watchRepository) ListByViewer(ctx context.Context, viewerID uuid.UUID) ([]*model.WatchRecord, error) {
	var recs []*model.WatchRecord
	if err := r.db.WithContext(ctx).
		Preload("Video").
		Where("viewer_id = ?", viewerID).
		Order("updated_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}

	return recs, nil
}

func (r *watchRepository) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*model.WatchRecord, error) {
	var recs []*model.WatchRecord
	if err := r.db.WithContext(ctx).
		Preload("Viewer").
		Where("video_id = ?", videoID).
		Find(&recs).Error; err != nil {
		return nil, err
	}

	return recs, nil
}

func (r *watchRepository) ListSince(ctx context.Context, since time.Time) ([]*model.WatchRecord, error) {
	var recs []*model.WatchRecord
	if err := r.db.WithContext(ctx).
		Where("updated_at >= ?", since).
		Find(&recs).Error; err != nil {
		return nil, err
	}

	return recs, nil
}
