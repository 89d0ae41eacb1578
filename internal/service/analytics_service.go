package service

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"anoa.com/creatorviewer/internal/dto"
	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/internal/repository"
	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	trendingWindow = 7 * 24 * time.Hour
	trendingLimit  = 10
)

type AnalyticsService interface {
	// VideoAnalytics returns the full per-viewer breakdown for one video.
	// Only the video's creator may request it.
	VideoAnalytics(ctx context.Context, videoID, requesterID uuid.UUID) (*dto.VideoAnalyticsResponse, error)

	// CreatorAnalytics aggregates watch stats across all of the creator's videos.
	CreatorAnalytics(ctx context.Context, creatorID uuid.UUID) (*dto.CreatorAnalyticsResponse, error)

	// Trending ranks videos by watch activity over the last seven days.
	Trending(ctx context.Context) ([]dto.TrendingVideoEntry, error)
}

type analyticsService struct {
	watchRepo    repository.WatchRepository
	videoRepo    repository.VideoRepository
	pointLogRepo repository.PointLogRepository
}

func NewAnalyticsService(watchRepo repository.WatchRepository, videoRepo repository.VideoRepository, pointLogRepo repository.PointLogRepository) AnalyticsService {
	return &analyticsService{
		watchRepo:    watchRepo,
		videoRepo:    videoRepo,
		pointLogRepo: pointLogRepo,
	}
}

func (s *analyticsService) VideoAnalytics(ctx context.Context, videoID, requesterID uuid.UUID) (*dto.VideoAnalyticsResponse, error) {
	video, err := s.videoRepo.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "video not found", apperror.ErrNotFound)
		}
		return nil, err
	}
	if video.CreatorID != requesterID {
		return nil, apperror.New(http.StatusForbidden, "not authorized to view analytics for this video", apperror.ErrForbidden)
	}

	recs, err := s.watchRepo.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	awarded, err := s.pointLogRepo.SumAwardedForVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	resp := &dto.VideoAnalyticsResponse{
		VideoID:            video.ID,
		Title:              video.Title,
		TotalViews:         len(recs),
		UniqueViewers:      len(recs),
		TotalPointsAwarded: awarded,
		ViewerBreakdown:    make([]dto.ViewerBreakdownRow, 0, len(recs)),
	}

	for _, rec := range recs {
		resp.TotalWatchSeconds += rec.CumulativeWatchSeconds
		if rec.FullyWatched {
			resp.CompletedViews++
		}

		lastWatched := rec.UpdatedAt
		if rec.LastReportAt != nil {
			lastWatched = *rec.LastReportAt
		}
		resp.ViewerBreakdown = append(resp.ViewerBreakdown, dto.ViewerBreakdownRow{
			ViewerID:      rec.ViewerID,
			Username:      rec.Viewer.Username,
			WatchDuration: rec.CumulativeWatchSeconds,
			FullyWatched:  rec.FullyWatched,
			LastWatchedAt: lastWatched,
		})
	}

	if len(recs) > 0 {
		resp.AverageWatchSeconds = float64(resp.TotalWatchSeconds) / float64(len(recs))
		resp.CompletionRate = float64(resp.CompletedViews) / float64(len(recs)) * 100
	}
	resp.DailyTrend = dailyTrend(recs)

	return resp, nil
}

// dailyTrend buckets watch records by the day they were last active.
func dailyTrend(recs []*model.WatchRecord) []dto.DailyTrendRow {
	byDay := make(map[string]*dto.DailyTrendRow)
	for _, rec := range recs {
		day := rec.UpdatedAt.Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &dto.DailyTrendRow{Date: day}
			byDay[day] = row
		}
		row.ActiveViews++
		row.WatchSeconds += rec.CumulativeWatchSeconds
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]dto.DailyTrendRow, 0, len(days))
	for _, day := range days {
		out = append(out, *byDay[day])
	}
	return out
}

func (s *analyticsService) CreatorAnalytics(ctx context.Context, creatorID uuid.UUID) (*dto.CreatorAnalyticsResponse, error) {
	videos, err := s.videoRepo.FindByCreator(ctx, creatorID, 0, 1000)
	if err != nil {
		return nil, err
	}

	resp := &dto.CreatorAnalyticsResponse{
		TotalVideos: len(videos),
		Videos:      make([]dto.VideoAnalyticsSummary, 0, len(videos)),
	}

	for _, video := range videos {
		recs, err := s.watchRepo.ListByVideo(ctx, video.ID)
		if err != nil {
			return nil, err
		}
		awarded, err := s.pointLogRepo.SumAwardedForVideo(ctx, video.ID)
		if err != nil {
			return nil, err
		}

		summary := dto.VideoAnalyticsSummary{
			VideoID:            video.ID,
			Title:              video.Title,
			TotalViews:         len(recs),
			TotalPointsAwarded: awarded,
		}
		for _, rec := range recs {
			summary.TotalWatchSeconds += rec.CumulativeWatchSeconds
			if rec.FullyWatched {
				summary.CompletedViews++
			}
		}

		resp.TotalViews += summary.TotalViews
		resp.TotalWatchSeconds += summary.TotalWatchSeconds
		resp.TotalPointsAwarded += summary.TotalPointsAwarded
		resp.Videos = append(resp.Videos, summary)
	}

	return resp, nil
}

func (s *analyticsService) Trending(ctx context.Context) ([]dto.TrendingVideoEntry, error) {
	since := time.Now().Add(-trendingWindow)
	recs, err := s.watchRepo.ListSince(ctx, since)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		views        int
		watchSeconds int
	}
	byVideo := make(map[uuid.UUID]*bucket)
	for _, rec := range recs {
		b, ok := byVideo[rec.VideoID]
		if !ok {
			b = &bucket{}
			byVideo[rec.VideoID] = b
		}
		b.views++
		b.watchSeconds += rec.CumulativeWatchSeconds
	}

	ids := make([]uuid.UUID, 0, len(byVideo))
	for id := range byVideo {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		bi, bj := byVideo[ids[i]], byVideo[ids[j]]
		if bi.views != bj.views {
			return bi.views > bj.views
		}
		return bi.watchSeconds > bj.watchSeconds
	})
	if len(ids) > trendingLimit {
		ids = ids[:trendingLimit]
	}

	out := make([]dto.TrendingVideoEntry, 0, len(ids))
	for _, id := range ids {
		video, err := s.videoRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, dto.TrendingVideoEntry{
			Video:              toVideoResponse(video, video.Creator.Username),
			RecentViews:        byVideo[id].views,
			RecentWatchSeconds: byVideo[id].watchSeconds,
		})
	}

	return out, nil
}
