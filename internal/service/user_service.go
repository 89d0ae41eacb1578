package service

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"anoa.com/creatorviewer/internal/dto"
	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/internal/repository"
	"anoa.com/creatorviewer/pkg/apperror"
	"anoa.com/creatorviewer/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const recentLedgerLimit = 20

type UserService interface {
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	Update(ctx context.Context, userID uuid.UUID, input dto.UpdateUserInput) (*dto.UserResponse, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (string, error)
	GetPoints(ctx context.Context, userID uuid.UUID) (*dto.UserPointsResponse, error)
	TransferPoints(ctx context.Context, sender *model.User, input dto.TransferPointsInput) (*dto.UserResponse, error)
}

type userService struct {
	repo         repository.UserRepository
	watchRepo    repository.WatchRepository
	pointLogRepo repository.PointLogRepository
	imageStorage storage.ImageStorage
}

func NewUserService(repo repository.UserRepository, watchRepo repository.WatchRepository, pointLogRepo repository.PointLogRepository, imageStorage storage.ImageStorage) UserService {
	return &userService{
		repo:         repo,
		watchRepo:    watchRepo,
		pointLogRepo: pointLogRepo,
		imageStorage: imageStorage,
	}
}

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "user not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) Update(ctx context.Context, userID uuid.UUID, input dto.UpdateUserInput) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "user not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	if input.Email != nil && *input.Email != user.Email {
		if _, err := s.repo.FindByEmail(ctx, *input.Email); err == nil {
			return nil, apperror.New(http.StatusBadRequest, "email already registered", apperror.ErrBadRequest)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user.Email = *input.Email
	}

	if input.Username != nil && *input.Username != user.Username {
		if _, err := s.repo.FindByUsername(ctx, *input.Username); err == nil {
			return nil, apperror.New(http.StatusBadRequest, "username already taken", apperror.ErrBadRequest)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user.Username = *input.Username
	}

	if input.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, fileName string) (string, error) {
	if s.imageStorage == nil {
		return "", apperror.New(http.StatusInternalServerError, "image storage is not configured", apperror.ErrInternal)
	}

	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		return "", err
	}

	url, err := s.imageStorage.UploadImage(ctx, r, "avatars", fileName)
	if err != nil {
		return "", err
	}

	old := user.AvatarURL
	user.AvatarURL = &url
	if err := s.repo.Update(ctx, user); err != nil {
		return "", err
	}

	if old != nil {
		if err := s.imageStorage.DeleteImage(ctx, *old); err != nil {
			log.Printf("failed to delete previous avatar for user %s: %v", user.ID, err)
		}
	}

	return url, nil
}

// GetPoints assembles the viewer's balance, per-video watch history, and the
// most recent ledger entries.
func (s *userService) GetPoints(ctx context.Context, userID uuid.UUID) (*dto.UserPointsResponse, error) {
	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "user not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	recs, err := s.watchRepo.ListByViewer(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := make([]dto.WatchHistoryEntry, 0, len(recs))
	for _, rec := range recs {
		lastWatched := rec.UpdatedAt
		if rec.LastReportAt != nil {
			lastWatched = *rec.LastReportAt
		}
		history = append(history, dto.WatchHistoryEntry{
			VideoID:       rec.VideoID,
			VideoTitle:    rec.Video.Title,
			WatchDuration: rec.CumulativeWatchSeconds,
			FullyWatched:  rec.FullyWatched,
			PointsEarned:  rec.PointsAwardedTotal(rec.Video.PointsPerMinute),
			LastWatchedAt: lastWatched,
		})
	}

	logs, err := s.pointLogRepo.ListByUser(ctx, userID, recentLedgerLimit)
	if err != nil {
		return nil, err
	}

	ledger := make([]dto.PointLogEntry, 0, len(logs))
	for _, l := range logs {
		ledger = append(ledger, dto.PointLogEntry{
			Reason:    l.Reason,
			Points:    l.Points,
			VideoID:   l.VideoID,
			CreatedAt: l.CreatedAt,
		})
	}

	return &dto.UserPointsResponse{
		TotalPoints:  user.Points,
		ViewHistory:  history,
		RecentLedger: ledger,
	}, nil
}

// TransferPoints lets a creator send points to any other user. The debit and
// credit land atomically; the sender's refreshed profile is returned.
func (s *userService) TransferPoints(ctx context.Context, sender *model.User, input dto.TransferPointsInput) (*dto.UserResponse, error) {
	if !sender.IsCreator() {
		return nil, apperror.New(http.StatusForbidden, "only creators can transfer points", apperror.ErrForbidden)
	}

	if input.RecipientID == sender.ID {
		return nil, apperror.New(http.StatusBadRequest, "cannot transfer points to yourself", apperror.ErrBadRequest)
	}

	recipient, err := s.repo.FindByID(ctx, input.RecipientID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "recipient not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	if err := s.repo.TransferPoints(ctx, sender.ID, recipient.ID, input.Points); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, sender.ID.String())
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(updated)
	return &resp, nil
}
