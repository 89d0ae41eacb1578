package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePointLogRepo struct {
	logs []model.PointLog
}

func (f *fakePointLogRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PointLog, error) {
	var out []*model.PointLog
	for i := range f.logs {
		if f.logs[i].UserID == userID {
			out = append(out, &f.logs[i])
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePointLogRepo) SumAwardedForVideo(ctx context.Context, videoID uuid.UUID) (int, error) {
	sum := 0
	for _, l := range f.logs {
		if l.VideoID != nil && *l.VideoID == videoID &&
			(l.Reason == model.ReasonBaseReward || l.Reason == model.ReasonBonusReward) {
			sum += l.Points
		}
	}
	return sum, nil
}

func TestVideoAnalyticsOwnerOnly(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	videoRepo := newFakeVideoRepo()

	creatorID := uuid.New()
	video := &model.Video{ID: uuid.New(), YouTubeID: "abc123def45", Title: "Mine", CreatorID: creatorID, PointsPerMinute: 10}
	require.NoError(t, videoRepo.Create(context.Background(), video))

	svc := NewAnalyticsService(watchRepo, videoRepo, &fakePointLogRepo{})

	_, err := svc.VideoAnalytics(context.Background(), video.ID, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestVideoAnalyticsAggregates(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	videoRepo := newFakeVideoRepo()
	pointLogRepo := &fakePointLogRepo{}
	ctx := context.Background()

	creatorID := uuid.New()
	video := &model.Video{ID: uuid.New(), YouTubeID: "abc123def45", Title: "Mine", CreatorID: creatorID, PointsPerMinute: 10, DurationSeconds: intPtr(300)}
	require.NoError(t, videoRepo.Create(ctx, video))

	svc := NewAccrualService(watchRepo, videoRepo, nil, nil, 0, 0)

	viewerA := uuid.New()
	viewerB := uuid.New()
	_, err := svc.Report(ctx, viewerA, video.ID, ReportInput{WatchSeconds: 290})
	require.NoError(t, err)
	_, err = svc.Report(ctx, viewerB, video.ID, ReportInput{WatchSeconds: 100})
	require.NoError(t, err)

	pointLogRepo.logs = watchRepo.ledger

	analytics := NewAnalyticsService(watchRepo, videoRepo, pointLogRepo)
	res, err := analytics.VideoAnalytics(ctx, video.ID, creatorID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalViews)
	assert.Equal(t, 2, res.UniqueViewers)
	assert.Equal(t, 390, res.TotalWatchSeconds)
	assert.Equal(t, 1, res.CompletedViews)
	assert.InDelta(t, 50.0, res.CompletionRate, 0.001)
	assert.Equal(t, 23, res.TotalPointsAwarded) // 13 for the full watch, 10 for the partial
	assert.Len(t, res.ViewerBreakdown, 2)
	require.NotEmpty(t, res.DailyTrend)
	assert.Equal(t, time.Now().Format("2006-01-02"), res.DailyTrend[0].Date)
}

func TestTrendingRanksByRecentViews(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	videoRepo := newFakeVideoRepo()
	ctx := context.Background()

	hot := &model.Video{ID: uuid.New(), YouTubeID: "hot12345678", Title: "Hot", CreatorID: uuid.New(), PointsPerMinute: 10}
	cold := &model.Video{ID: uuid.New(), YouTubeID: "cold1234567", Title: "Cold", CreatorID: uuid.New(), PointsPerMinute: 10}
	require.NoError(t, videoRepo.Create(ctx, hot))
	require.NoError(t, videoRepo.Create(ctx, cold))

	accrual := NewAccrualService(watchRepo, videoRepo, nil, nil, 0, 0)
	for i := 0; i < 3; i++ {
		_, err := accrual.Report(ctx, uuid.New(), hot.ID, ReportInput{WatchSeconds: 30})
		require.NoError(t, err)
	}
	_, err := accrual.Report(ctx, uuid.New(), cold.ID, ReportInput{WatchSeconds: 30})
	require.NoError(t, err)

	svc := NewAnalyticsService(watchRepo, videoRepo, &fakePointLogRepo{})
	trending, err := svc.Trending(ctx)
	require.NoError(t, err)

	require.Len(t, trending, 2)
	assert.Equal(t, "Hot", trending[0].Video.Title)
	assert.Equal(t, 3, trending[0].RecentViews)
	assert.Equal(t, "Cold", trending[1].Video.Title)
}