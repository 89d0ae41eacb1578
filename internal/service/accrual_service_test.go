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
	"gorm.io/gorm"
)

type pairKey struct {
	viewer uuid.UUID
	video  uuid.UUID
}

// fakeWatchRepo keeps watch records and ledger state in memory and enforces
// the same version check as the real repository.
type fakeWatchRepo struct {
	records  map[pairKey]*model.WatchRecord
	balances map[uuid.UUID]int
	ledger   []model.PointLog

	// forceConflicts makes the next N SaveWithCredits calls fail as if a
	// concurrent writer had bumped the version first.
	forceConflicts int
	saveCalls      int
}

func newFakeWatchRepo() *fakeWatchRepo {
	return &fakeWatchRepo{
		records:  make(map[pairKey]*model.WatchRecord),
		balances: make(map[uuid.UUID]int),
	}
}

func (f *fakeWatchRepo) FindOrCreate(ctx context.Context, viewerID, videoID uuid.UUID) (*model.WatchRecord, error) {
	key := pairKey{viewerID, videoID}
	if rec, ok := f.records[key]; ok {
		cp := *rec
		return &cp, nil
	}
	now := time.Now()
	rec := &model.WatchRecord{
		ID:        uuid.New(),
		ViewerID:  viewerID,
		VideoID:   videoID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.records[key] = rec
	cp := *rec
	return &cp, nil
}

func (f *fakeWatchRepo) Find(ctx context.Context, viewerID, videoID uuid.UUID) (*model.WatchRecord, error) {
	if rec, ok := f.records[pairKey{viewerID, videoID}]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWatchRepo) SaveWithCredits(ctx context.Context, rec *model.WatchRecord, expectedVersion int64, credits []model.PointLog) (int, error) {
	f.saveCalls++
	if f.forceConflicts > 0 {
		f.forceConflicts--
		// Simulate the concurrent writer landing first.
		stored := f.records[pairKey{rec.ViewerID, rec.VideoID}]
		stored.Version++
		return 0, apperror.ErrConflict
	}

	stored, ok := f.records[pairKey{rec.ViewerID, rec.VideoID}]
	if !ok || stored.Version != expectedVersion {
		return 0, apperror.ErrConflict
	}

	cp := *rec
	cp.Version = expectedVersion + 1
	cp.UpdatedAt = time.Now()
	f.records[pairKey{rec.ViewerID, rec.VideoID}] = &cp

	for _, c := range credits {
		f.balances[c.UserID] += c.Points
		f.ledger = append(f.ledger, c)
	}

	rec.Version = expectedVersion + 1
	return f.balances[rec.ViewerID], nil
}

func (f *fakeWatchRepo) ListByViewer(ctx context.Context, viewerID uuid.UUID) ([]*model.WatchRecord, error) {
	var out []*model.WatchRecord
	for _, rec := range f.records {
		if rec.ViewerID == viewerID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeWatchRepo) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*model.WatchRecord, error) {
	var out []*model.WatchRecord
	for _, rec := range f.records {
		if rec.VideoID == videoID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeWatchRepo) ListSince(ctx context.Context, since time.Time) ([]*model.WatchRecord, error) {
	var out []*model.WatchRecord
	for _, rec := range f.records {
		if rec.UpdatedAt.After(since) || rec.UpdatedAt.Equal(since) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeVideoRepo struct {
	videos map[uuid.UUID]*model.Video
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[uuid.UUID]*model.Video)}
}

func (f *fakeVideoRepo) Create(ctx context.Context, video *model.Video) error {
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	f.videos[video.ID] = video
	return nil
}

func (f *fakeVideoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	if v, ok := f.videos[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVideoRepo) FindByYouTubeID(ctx context.Context, youtubeID string) (*model.Video, error) {
	for _, v := range f.videos {
		if v.YouTubeID == youtubeID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVideoRepo) FindByCreator(ctx context.Context, creatorID uuid.UUID, skip, limit int) ([]*model.Video, error) {
	var out []*model.Video
	for _, v := range f.videos {
		if v.CreatorID == creatorID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeVideoRepo) FindDiscover(ctx context.Context, skip, limit int) ([]*model.Video, error) {
	var out []*model.Video
	for _, v := range f.videos {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeVideoRepo) Update(ctx context.Context, video *model.Video) error {
	f.videos[video.ID] = video
	return nil
}

func (f *fakeVideoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.videos, id)
	return nil
}

func (f *fakeVideoRepo) SetDurationIfUnknown(ctx context.Context, id uuid.UUID, durationSeconds int) error {
	if v, ok := f.videos[id]; ok && v.DurationSeconds == nil {
		v.DurationSeconds = &durationSeconds
	}
	return nil
}

func intPtr(i int) *int { return &i }

func newTestAccrual(t *testing.T) (AccrualService, *fakeWatchRepo, *fakeVideoRepo, uuid.UUID, uuid.UUID) {
	t.Helper()

	watchRepo := newFakeWatchRepo()
	videoRepo := newFakeVideoRepo()

	viewerID := uuid.New()
	video := &model.Video{
		ID:              uuid.New(),
		YouTubeID:       "dQw4w9WgXcQ",
		Title:           "Test video",
		CreatorID:       uuid.New(),
		PointsPerMinute: 10,
		DurationSeconds: intPtr(300),
	}
	require.NoError(t, videoRepo.Create(context.Background(), video))

	svc := NewAccrualService(watchRepo, videoRepo, nil, nil, 0, 0)
	return svc, watchRepo, videoRepo, viewerID, video.ID
}

func TestReportBelowThresholdEarnsNothing(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)

	res, err := svc.Report(context.Background(), viewerID, videoID, ReportInput{WatchSeconds: 30})
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoChange, res.Outcome)
	assert.Equal(t, 0, res.PointsEarned)
	assert.False(t, res.AlreadyEarnedBase)
	assert.False(t, res.FullyWatched)
	assert.Equal(t, 30, res.CumulativeWatchSeconds)
	assert.Equal(t, 0, repo.balances[viewerID])
}

func TestReportBaseAwardAtOneMinute(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)

	res, err := svc.Report(context.Background(), viewerID, videoID, ReportInput{WatchSeconds: 65})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBaseAwarded, res.Outcome)
	assert.Equal(t, 10, res.PointsEarned)
	assert.False(t, res.AlreadyEarnedBase)
	assert.Equal(t, 10, repo.balances[viewerID])

	require.Len(t, repo.ledger, 1)
	assert.Equal(t, model.ReasonBaseReward, repo.ledger[0].Reason)
	assert.Equal(t, 10, repo.ledger[0].Points)
}

func TestReportBonusAfterBase(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)
	ctx := context.Background()

	_, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 65})
	require.NoError(t, err)

	res, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 125})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBonusAwarded, res.Outcome)
	assert.Equal(t, 1, res.PointsEarned)
	assert.True(t, res.AlreadyEarnedBase)
	assert.True(t, res.ContinuingPoints)
	assert.Equal(t, 11, repo.balances[viewerID])
}

func TestReportCompletionFreezesAccrual(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)
	ctx := context.Background()

	_, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 125})
	require.NoError(t, err)

	// 290 >= 0.95 * 300, so this report both pays the remaining bonus and
	// marks the video fully watched.
	res, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 290})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, res.PointsEarned)
	assert.True(t, res.FullyWatched)

	balance := repo.balances[viewerID]

	// Further watching moves the clock but never the balance.
	res, err = svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 295})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChange, res.Outcome)
	assert.Equal(t, 0, res.PointsEarned)
	assert.True(t, res.FullyWatched)
	assert.Equal(t, 295, res.CumulativeWatchSeconds)
	assert.Equal(t, balance, repo.balances[viewerID])
}

func TestReportIdempotentReplay(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)
	ctx := context.Background()

	first, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 125})
	require.NoError(t, err)
	assert.Equal(t, 11, first.PointsEarned)

	replay, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 125})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChange, replay.Outcome)
	assert.Equal(t, 0, replay.PointsEarned)
	assert.Equal(t, 11, repo.balances[viewerID])
}

func TestReportStaleIsNoOp(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)
	ctx := context.Background()

	_, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 10})
	require.NoError(t, err)

	res, err := svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 5})
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoChange, res.Outcome)
	assert.Equal(t, 10, res.CumulativeWatchSeconds)

	rec, err := repo.Find(ctx, viewerID, videoID)
	require.NoError(t, err)
	assert.Equal(t, 10, rec.CumulativeWatchSeconds)
}

func TestReportOrderIndependentTotals(t *testing.T) {
	ctx := context.Background()

	// One viewer gets the reports in order, another gets one big jump. Both
	// must end up with the same balance.
	svcA, repoA, _, viewerA, videoA := newTestAccrual(t)
	for _, s := range []int{30, 65, 125, 290} {
		_, err := svcA.Report(ctx, viewerA, videoA, ReportInput{WatchSeconds: s})
		require.NoError(t, err)
	}

	svcB, repoB, _, viewerB, videoB := newTestAccrual(t)
	_, err := svcB.Report(ctx, viewerB, videoB, ReportInput{WatchSeconds: 290})
	require.NoError(t, err)

	assert.Equal(t, repoA.balances[viewerA], repoB.balances[viewerB])
	assert.Equal(t, 13, repoB.balances[viewerB])
}

func TestReportNegativeDurationRejected(t *testing.T) {
	svc, _, _, viewerID, videoID := newTestAccrual(t)

	_, err := svc.Report(context.Background(), viewerID, videoID, ReportInput{WatchSeconds: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestReportUnknownVideo(t *testing.T) {
	svc, _, _, viewerID, _ := newTestAccrual(t)

	_, err := svc.Report(context.Background(), viewerID, uuid.New(), ReportInput{WatchSeconds: 65})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestReportFallbackCompletionBar(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	videoRepo := newFakeVideoRepo()

	viewerID := uuid.New()
	video := &model.Video{
		ID:              uuid.New(),
		YouTubeID:       "abc123def45",
		Title:           "No duration yet",
		CreatorID:       uuid.New(),
		PointsPerMinute: 10,
	}
	require.NoError(t, videoRepo.Create(context.Background(), video))

	svc := NewAccrualService(watchRepo, videoRepo, nil, nil, 0, 0)

	// Unknown duration assumes a ten minute video: 570 = 0.95 * 600.
	res, err := svc.Report(context.Background(), viewerID, video.ID, ReportInput{WatchSeconds: 570})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.True(t, res.FullyWatched)
	assert.Equal(t, 0, res.VideoDurationSeconds)
	assert.Equal(t, float64(0), res.CompletionPercent)
}

func TestReportBackfillsObservedDuration(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	videoRepo := newFakeVideoRepo()

	viewerID := uuid.New()
	video := &model.Video{
		ID:              uuid.New(),
		YouTubeID:       "abc123def45",
		Title:           "No duration yet",
		CreatorID:       uuid.New(),
		PointsPerMinute: 10,
	}
	require.NoError(t, videoRepo.Create(context.Background(), video))

	svc := NewAccrualService(watchRepo, videoRepo, nil, nil, 0, 0)

	res, err := svc.Report(context.Background(), viewerID, video.ID, ReportInput{
		WatchSeconds:            120,
		ObservedDurationSeconds: 240,
	})
	require.NoError(t, err)
	assert.Equal(t, 240, res.VideoDurationSeconds)
	assert.Equal(t, float64(50), res.CompletionPercent)

	stored, err := videoRepo.FindByID(context.Background(), video.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DurationSeconds)
	assert.Equal(t, 240, *stored.DurationSeconds)
}

func TestReportRetriesOnVersionConflict(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)
	repo.forceConflicts = 1

	res, err := svc.Report(context.Background(), viewerID, videoID, ReportInput{WatchSeconds: 65})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBaseAwarded, res.Outcome)
	assert.Equal(t, 10, repo.balances[viewerID])
	assert.Equal(t, 2, repo.saveCalls)
}

func TestReportGivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, repo, _, viewerID, videoID := newTestAccrual(t)
	repo.forceConflicts = maxReportAttempts

	_, err := svc.Report(context.Background(), viewerID, videoID, ReportInput{WatchSeconds: 65})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

// deadlineAwareVideoRepo records whether the lookup context carried a
// deadline, which is how the report timeout reaches the repositories.
type deadlineAwareVideoRepo struct {
	*fakeVideoRepo
	sawDeadline bool
}

func (r *deadlineAwareVideoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	_, r.sawDeadline = ctx.Deadline()
	return r.fakeVideoRepo.FindByID(ctx, id)
}

func TestReportAppliesConfiguredTimeout(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	videoRepo := &deadlineAwareVideoRepo{fakeVideoRepo: newFakeVideoRepo()}

	video := &model.Video{
		ID:              uuid.New(),
		YouTubeID:       "abc123def45",
		Title:           "Timed",
		CreatorID:       uuid.New(),
		PointsPerMinute: 10,
	}
	require.NoError(t, videoRepo.Create(context.Background(), video))

	svc := NewAccrualService(watchRepo, videoRepo, nil, nil, 0, 5*time.Second)
	_, err := svc.Report(context.Background(), uuid.New(), video.ID, ReportInput{WatchSeconds: 30})
	require.NoError(t, err)
	assert.True(t, videoRepo.sawDeadline)

	videoRepo.sawDeadline = false
	svc = NewAccrualService(watchRepo, videoRepo, nil, nil, 0, 0)
	_, err = svc.Report(context.Background(), uuid.New(), video.ID, ReportInput{WatchSeconds: 30})
	require.NoError(t, err)
	assert.False(t, videoRepo.sawDeadline)
}

func TestProgress(t *testing.T) {
	svc, _, _, viewerID, videoID := newTestAccrual(t)
	ctx := context.Background()

	// No reports yet: zeroed state with the known duration.
	progress, err := svc.Progress(ctx, viewerID, videoID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.CumulativeWatchSeconds)
	assert.Equal(t, 300, progress.VideoDurationSeconds)

	_, err = svc.Report(ctx, viewerID, videoID, ReportInput{WatchSeconds: 125})
	require.NoError(t, err)

	progress, err = svc.Progress(ctx, viewerID, videoID)
	require.NoError(t, err)
	assert.Equal(t, 125, progress.CumulativeWatchSeconds)
	assert.Equal(t, 11, progress.PointsEarned)
	assert.False(t, progress.FullyWatched)
	assert.InDelta(t, 41.67, progress.CompletionPercent, 0.01)
}

func TestBonusPointsFor(t *testing.T) {
	cases := []struct {
		seconds int
		rate    int
		want    int
	}{
		{0, 10, 0},
		{60, 10, 0},
		{119, 10, 0},
		{120, 10, 1},
		{125, 10, 1},
		{290, 10, 3},
		{300, 10, 4},
		{660, 10, 10},
		{120, 20, 2},
		{120, 5, 0}, // floor: 0.5 points never rounds up
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, bonusPointsFor(tc.seconds, tc.rate),
			"seconds=%d rate=%d", tc.seconds, tc.rate)
	}
}
