package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/internal/repository"
	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	// Minimum cumulative watch time before any points are paid.
	BaseRewardThresholdSeconds = 60

	// Assumed video length when the real duration has not been discovered yet.
	FallbackDurationSeconds = 600

	// A video counts as fully watched at 95% of its duration, tolerating
	// end-of-video buffering and ads that keep the timer short of 100%.
	CompletionRatio = 0.95

	maxReportAttempts = 3
)

// AccrualOutcome tags what a single watch report did. The booleans exposed
// over HTTP are derived from it, so contradictory combinations cannot occur.
type AccrualOutcome string

const (
	OutcomeNoChange     AccrualOutcome = "no_change"
	OutcomeBaseAwarded  AccrualOutcome = "base_awarded"
	OutcomeBonusAwarded AccrualOutcome = "bonus_awarded"
	OutcomeCompleted    AccrualOutcome = "completed"
)

type ReportInput struct {
	// Cumulative seconds the client believes have been watched, not a delta.
	WatchSeconds int

	// Optional player-reported video length; backfills an unknown duration.
	ObservedDurationSeconds int
}

type AccrualResult struct {
	Outcome                AccrualOutcome
	PointsEarned           int
	AlreadyEarnedBase      bool // base reward was granted before this call
	ContinuingPoints       bool // this call paid bonus on a previously granted base
	FullyWatched           bool
	CumulativeWatchSeconds int
	VideoDurationSeconds   int // 0 when unknown
	CompletionPercent      float64
}

type WatchProgress struct {
	CumulativeWatchSeconds int     `json:"cumulative_watch_seconds"`
	FullyWatched           bool    `json:"fully_watched"`
	PointsEarned           int     `json:"points_earned"`
	VideoDurationSeconds   int     `json:"video_duration,omitempty"`
	CompletionPercent      float64 `json:"completion_percentage"`
}

type AccrualService interface {
	// Report processes a cumulative watch-duration report for a
	// (viewer, video) pair and awards any points due. It is idempotent:
	// replaying a report, or delivering reports out of order, never awards
	// points twice.
	Report(ctx context.Context, viewerID, videoID uuid.UUID, in ReportInput) (*AccrualResult, error)

	// Progress returns the stored accrual state so a client can restore its
	// display after a reload.
	Progress(ctx context.Context, viewerID, videoID uuid.UUID) (*WatchProgress, error)
}

type accrualService struct {
	watchRepo   repository.WatchRepository
	videoRepo   repository.VideoRepository
	redisClient *redis.Client
	notifier    PointsNotifier
	throttle    time.Duration
	timeout     time.Duration
}

func NewAccrualService(
	watchRepo repository.WatchRepository,
	videoRepo repository.VideoRepository,
	redisClient *redis.Client,
	notifier PointsNotifier,
	throttle time.Duration,
	timeout time.Duration,
) AccrualService {
	return &accrualService{
		watchRepo:   watchRepo,
		videoRepo:   videoRepo,
		redisClient: redisClient,
		notifier:    notifier,
		throttle:    throttle,
		timeout:     timeout,
	}
}

func (s *accrualService) Report(ctx context.Context, viewerID, videoID uuid.UUID, in ReportInput) (*AccrualResult, error) {
	if in.WatchSeconds < 0 {
		return nil, apperror.New(http.StatusBadRequest, "watch duration must not be negative", apperror.ErrInvalidInput)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	video, err := s.videoRepo.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "video not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	if in.ObservedDurationSeconds > 0 && video.DurationSeconds == nil {
		if err := s.videoRepo.SetDurationIfUnknown(ctx, video.ID, in.ObservedDurationSeconds); err == nil {
			d := in.ObservedDurationSeconds
			video.DurationSeconds = &d
		}
	}

	for attempt := 0; attempt < maxReportAttempts; attempt++ {
		rec, err := s.watchRepo.FindOrCreate(ctx, viewerID, videoID)
		if err != nil {
			return nil, err
		}

		// Throttle re-processing of an already-rewarded pair. The base
		// reward is never delayed by the throttle, so the first minute pays
		// out promptly.
		if attempt == 0 && rec.BasePointsAwarded {
			allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, viewerID, "watch_report:"+videoID.String(), s.throttle)
			if err == nil && !allowed {
				return snapshotResult(rec, video), nil
			}
		}

		prev := *rec
		result, basePoints, bonusPoints := applyReport(rec, video, in.WatchSeconds)

		if basePoints == 0 && bonusPoints == 0 &&
			rec.CumulativeWatchSeconds == prev.CumulativeWatchSeconds &&
			rec.FullyWatched == prev.FullyWatched {
			// Stale or duplicate report: accepted, nothing to persist.
			return result, nil
		}

		now := time.Now()
		rec.LastReportAt = &now

		var credits []model.PointLog
		if basePoints > 0 {
			credits = append(credits, model.PointLog{
				UserID: viewerID, VideoID: &video.ID,
				Reason: model.ReasonBaseReward, Points: basePoints,
			})
		}
		if bonusPoints > 0 {
			credits = append(credits, model.PointLog{
				UserID: viewerID, VideoID: &video.ID,
				Reason: model.ReasonBonusReward, Points: bonusPoints,
			})
		}

		balance, err := s.watchRepo.SaveWithCredits(ctx, rec, prev.Version, credits)
		if errors.Is(err, apperror.ErrConflict) {
			// Another report for the same pair won the write; recompute
			// against its result.
			continue
		}
		if err != nil {
			return nil, err
		}

		if result.PointsEarned > 0 && s.notifier != nil {
			s.notifier.PublishCredit(ctx, viewerID, videoID, result.PointsEarned, balance)
		}

		return result, nil
	}

	return nil, apperror.New(http.StatusConflict, "concurrent watch reports for this video, please retry", apperror.ErrConflict)
}

func (s *accrualService) Progress(ctx context.Context, viewerID, videoID uuid.UUID) (*WatchProgress, error) {
	video, err := s.videoRepo.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "video not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	rec, err := s.watchRepo.Find(ctx, viewerID, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No reports yet for this pair.
			return &WatchProgress{VideoDurationSeconds: durationOf(video)}, nil
		}
		return nil, err
	}

	return &WatchProgress{
		CumulativeWatchSeconds: rec.CumulativeWatchSeconds,
		FullyWatched:           rec.FullyWatched,
		PointsEarned:           rec.PointsAwardedTotal(video.PointsPerMinute),
		VideoDurationSeconds:   durationOf(video),
		CompletionPercent:      completionPercent(rec.CumulativeWatchSeconds, video),
	}, nil
}

// applyReport runs the accrual state machine over a single report. It
// mutates rec in place and returns the outcome plus the base/bonus credits
// earned by this call.
func applyReport(rec *model.WatchRecord, video *model.Video, reportedSeconds int) (*AccrualResult, int, int) {
	alreadyBase := rec.BasePointsAwarded
	wasFully := rec.FullyWatched

	// Untrusted and possibly stale input: the high-water mark wins.
	newSeconds := reportedSeconds
	if rec.CumulativeWatchSeconds > newSeconds {
		newSeconds = rec.CumulativeWatchSeconds
	}

	basePoints, bonusPoints := 0, 0
	if !wasFully {
		if !rec.BasePointsAwarded && newSeconds >= BaseRewardThresholdSeconds {
			basePoints = video.PointsPerMinute
			rec.BasePointsAwarded = true
		}
		if rec.BasePointsAwarded {
			if total := bonusPointsFor(newSeconds, video.PointsPerMinute); total > rec.BonusPointsAwardedTotal {
				bonusPoints = total - rec.BonusPointsAwardedTotal
				rec.BonusPointsAwardedTotal = total
			}
		}
	}

	rec.CumulativeWatchSeconds = newSeconds
	if !rec.FullyWatched && float64(newSeconds) >= completionBarSeconds(video) {
		rec.FullyWatched = true
	}

	outcome := OutcomeNoChange
	switch {
	case rec.FullyWatched && !wasFully:
		outcome = OutcomeCompleted
	case basePoints > 0:
		outcome = OutcomeBaseAwarded
	case bonusPoints > 0:
		outcome = OutcomeBonusAwarded
	}

	return &AccrualResult{
		Outcome:                outcome,
		PointsEarned:           basePoints + bonusPoints,
		AlreadyEarnedBase:      alreadyBase,
		ContinuingPoints:       alreadyBase && bonusPoints > 0,
		FullyWatched:           rec.FullyWatched,
		CumulativeWatchSeconds: rec.CumulativeWatchSeconds,
		VideoDurationSeconds:   durationOf(video),
		CompletionPercent:      completionPercent(rec.CumulativeWatchSeconds, video),
	}, basePoints, bonusPoints
}

func snapshotResult(rec *model.WatchRecord, video *model.Video) *AccrualResult {
	return &AccrualResult{
		Outcome:                OutcomeNoChange,
		AlreadyEarnedBase:      rec.BasePointsAwarded,
		FullyWatched:           rec.FullyWatched,
		CumulativeWatchSeconds: rec.CumulativeWatchSeconds,
		VideoDurationSeconds:   durationOf(video),
		CompletionPercent:      completionPercent(rec.CumulativeWatchSeconds, video),
	}
}

// bonusPointsFor returns the total bonus ever due for the given cumulative
// seconds: 10% of the per-minute rate for each full minute beyond the first.
// (seconds-60)*rate/600 is the integer floor of (minutes-1) * rate/10.
func bonusPointsFor(seconds, pointsPerMinute int) int {
	if seconds <= BaseRewardThresholdSeconds {
		return 0
	}
	return (seconds - BaseRewardThresholdSeconds) * pointsPerMinute / 600
}

func completionBarSeconds(video *model.Video) float64 {
	if d := durationOf(video); d > 0 {
		return CompletionRatio * float64(d)
	}
	return CompletionRatio * float64(FallbackDurationSeconds)
}

func durationOf(video *model.Video) int {
	if video.DurationSeconds != nil && *video.DurationSeconds > 0 {
		return *video.DurationSeconds
	}
	return 0
}

func completionPercent(seconds int, video *model.Video) float64 {
	d := durationOf(video)
	if d == 0 {
		return 0
	}
	pct := 100 * float64(seconds) / float64(d)
	if pct > 100 {
		pct = 100
	}
	return pct
}
