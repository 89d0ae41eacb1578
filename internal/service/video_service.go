package service

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"anoa.com/creatorviewer/internal/dto"
	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/internal/repository"
	"anoa.com/creatorviewer/pkg/apperror"
	"anoa.com/creatorviewer/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type VideoService interface {
	Create(ctx context.Context, creator *model.User, input dto.CreateVideoInput) (*dto.VideoResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.VideoResponse, error)
	GetByCreator(ctx context.Context, creatorID uuid.UUID, skip, limit int) ([]dto.VideoResponse, error)
	Discover(ctx context.Context, skip, limit int) ([]dto.VideoResponse, error)
	Update(ctx context.Context, videoID uuid.UUID, userID uuid.UUID, input dto.UpdateVideoInput) (*dto.VideoResponse, error)
	Delete(ctx context.Context, videoID uuid.UUID, userID uuid.UUID) error
	UploadThumbnail(ctx context.Context, videoID, userID uuid.UUID, r io.Reader, fileName string) (string, error)
	Search(ctx context.Context, query string, limit int) ([]VideoDocument, error)
}

type videoService struct {
	repo            repository.VideoRepository
	search          SearchService
	imageStorage    storage.ImageStorage
	sanitizer       *bluemonday.Policy
	defaultRate     int
	thumbnailFolder string
}

func NewVideoService(repo repository.VideoRepository, search SearchService, imageStorage storage.ImageStorage, defaultRate int, thumbnailFolder string) VideoService {
	return &videoService{
		repo:            repo,
		search:          search,
		imageStorage:    imageStorage,
		sanitizer:       bluemonday.StrictPolicy(),
		defaultRate:     defaultRate,
		thumbnailFolder: thumbnailFolder,
	}
}

func (s *videoService) Create(ctx context.Context, creator *model.User, input dto.CreateVideoInput) (*dto.VideoResponse, error) {
	youtubeID := ExtractYouTubeID(input.YouTubeID)
	if youtubeID == "" {
		return nil, apperror.New(http.StatusBadRequest, "invalid YouTube video reference", apperror.ErrInvalidInput)
	}

	if _, err := s.repo.FindByYouTubeID(ctx, youtubeID); err == nil {
		return nil, apperror.New(http.StatusBadRequest, "this YouTube video has already been added", apperror.ErrBadRequest)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rate := s.defaultRate
	if input.PointsPerMinute != nil {
		rate = *input.PointsPerMinute
	}

	video := &model.Video{
		YouTubeID:       youtubeID,
		Title:           strings.TrimSpace(input.Title),
		Description:     s.sanitizeDescription(input.Description),
		CreatorID:       creator.ID,
		PointsPerMinute: rate,
		DurationSeconds: input.DurationSeconds,
	}

	if err := s.repo.Create(ctx, video); err != nil {
		return nil, err
	}

	if err := s.search.IndexVideo(video, creator.Username); err != nil {
		log.Printf("failed to index video %s: %v", video.ID, err)
	}

	resp := toVideoResponse(video, creator.Username)
	return &resp, nil
}

func (s *videoService) GetByID(ctx context.Context, id uuid.UUID) (*dto.VideoResponse, error) {
	video, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "video not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	resp := toVideoResponse(video, video.Creator.Username)
	return &resp, nil
}

func (s *videoService) GetByCreator(ctx context.Context, creatorID uuid.UUID, skip, limit int) ([]dto.VideoResponse, error) {
	if limit <= 0 {
		limit = 100
	}

	videos, err := s.repo.FindByCreator(ctx, creatorID, skip, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v, ""))
	}
	return out, nil
}

func (s *videoService) Discover(ctx context.Context, skip, limit int) ([]dto.VideoResponse, error) {
	if limit <= 0 {
		limit = 20
	}

	videos, err := s.repo.FindDiscover(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v, v.Creator.Username))
	}
	return out, nil
}

func (s *videoService) Update(ctx context.Context, videoID uuid.UUID, userID uuid.UUID, input dto.UpdateVideoInput) (*dto.VideoResponse, error) {
	video, err := s.findOwned(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		video.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		video.Description = s.sanitizeDescription(input.Description)
	}
	if input.PointsPerMinute != nil {
		video.PointsPerMinute = *input.PointsPerMinute
	}
	if input.DurationSeconds != nil {
		video.DurationSeconds = input.DurationSeconds
	}

	if err := s.repo.Update(ctx, video); err != nil {
		return nil, err
	}

	if err := s.search.IndexVideo(video, video.Creator.Username); err != nil {
		log.Printf("failed to reindex video %s: %v", video.ID, err)
	}

	resp := toVideoResponse(video, video.Creator.Username)
	return &resp, nil
}

func (s *videoService) Delete(ctx context.Context, videoID uuid.UUID, userID uuid.UUID) error {
	video, err := s.findOwned(ctx, videoID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, video.ID); err != nil {
		return err
	}

	if err := s.search.DeleteVideo(video.ID.String()); err != nil {
		log.Printf("failed to remove video %s from search index: %v", video.ID, err)
	}

	if video.ThumbnailURL != nil && s.imageStorage != nil {
		if err := s.imageStorage.DeleteImage(ctx, *video.ThumbnailURL); err != nil {
			log.Printf("failed to delete thumbnail for video %s: %v", video.ID, err)
		}
	}

	return nil
}

func (s *videoService) UploadThumbnail(ctx context.Context, videoID, userID uuid.UUID, r io.Reader, fileName string) (string, error) {
	video, err := s.findOwned(ctx, videoID, userID)
	if err != nil {
		return "", err
	}

	if s.imageStorage == nil {
		return "", apperror.New(http.StatusInternalServerError, "image storage is not configured", apperror.ErrInternal)
	}

	url, err := s.imageStorage.UploadImage(ctx, r, s.thumbnailFolder, fileName)
	if err != nil {
		return "", err
	}

	old := video.ThumbnailURL
	video.ThumbnailURL = &url
	if err := s.repo.Update(ctx, video); err != nil {
		return "", err
	}

	if old != nil {
		if err := s.imageStorage.DeleteImage(ctx, *old); err != nil {
			log.Printf("failed to delete previous thumbnail for video %s: %v", video.ID, err)
		}
	}

	return url, nil
}

func (s *videoService) Search(ctx context.Context, query string, limit int) ([]VideoDocument, error) {
	return s.search.SearchVideos(query, limit)
}

func (s *videoService) findOwned(ctx context.Context, videoID, userID uuid.UUID) (*model.Video, error) {
	video, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "video not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	if video.CreatorID != userID {
		return nil, apperror.New(http.StatusForbidden, "not authorized to modify this video", apperror.ErrForbidden)
	}

	return video, nil
}

func (s *videoService) sanitizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	clean := strings.TrimSpace(s.sanitizer.Sanitize(*description))
	return &clean
}

// ExtractYouTubeID accepts a bare video ID or a youtube.com/youtu.be URL and
// returns the video ID, or "" when nothing usable is found.
func ExtractYouTubeID(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	if strings.Contains(ref, "youtube.com") || strings.Contains(ref, "youtu.be") {
		switch {
		case strings.Contains(ref, "v="):
			ref = strings.SplitN(ref, "v=", 2)[1]
			ref = strings.SplitN(ref, "&", 2)[0]
		case strings.Contains(ref, "youtu.be/"):
			ref = strings.SplitN(ref, "youtu.be/", 2)[1]
			ref = strings.SplitN(ref, "?", 2)[0]
		default:
			return ""
		}
	}

	if len(ref) > 20 {
		return ""
	}
	return ref
}

func toVideoResponse(video *model.Video, creatorUsername string) dto.VideoResponse {
	return dto.VideoResponse{
		ID:              video.ID,
		YouTubeID:       video.YouTubeID,
		YouTubeURL:      video.YouTubeURL(),
		Title:           video.Title,
		Description:     video.Description,
		CreatorID:       video.CreatorID,
		CreatorUsername: creatorUsername,
		PointsPerMinute: video.PointsPerMinute,
		DurationSeconds: video.DurationSeconds,
		ThumbnailURL:    video.ThumbnailURL,
		CreatedAt:       video.CreatedAt,
	}
}
