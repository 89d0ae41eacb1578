package service

import (
	"encoding/json"
	"html"
	"log"

	"anoa.com/creatorviewer/internal/model"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const videosIndex = "videos"

// VideoDocument is the shape stored in the Meilisearch videos index.
type VideoDocument struct {
	ID              string `json:"id"`
	YouTubeID       string `json:"youtube_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	CreatorID       string `json:"creator_id"`
	CreatorUsername string `json:"creator_username"`
	PointsPerMinute int    `json:"points_per_minute"`
}

type SearchService interface {
	IndexVideo(video *model.Video, creatorUsername string) error
	DeleteVideo(id string) error
	SearchVideos(query string, limit int) ([]VideoDocument, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	if s.client == nil {
		return
	}

	searchable := []string{"title", "description", "creator_username"}
	if _, err := s.client.Index(videosIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("Failed to update videos searchable attributes: %v", err)
	}

	filterable := []interface{}{"creator_id"}
	if _, err := s.client.Index(videosIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("Failed to update videos filterable attributes: %v", err)
	}
}

func (s *searchService) IndexVideo(video *model.Video, creatorUsername string) error {
	if s.client == nil {
		return nil
	}

	description := ""
	if video.Description != nil {
		description = html.UnescapeString(s.sanitizer.Sanitize(*video.Description))
	}

	doc := VideoDocument{
		ID:              video.ID.String(),
		YouTubeID:       video.YouTubeID,
		Title:           video.Title,
		Description:     description,
		CreatorID:       video.CreatorID.String(),
		CreatorUsername: creatorUsername,
		PointsPerMinute: video.PointsPerMinute,
	}

	_, err := s.client.Index(videosIndex).AddDocuments([]VideoDocument{doc}, strPtr("id"))
	return err
}

func strPtr(s string) *string {
	return &s
}

func (s *searchService) DeleteVideo(id string) error {
	if s.client == nil {
		return nil
	}

	_, err := s.client.Index(videosIndex).DeleteDocument(id)
	return err
}

func (s *searchService) SearchVideos(query string, limit int) ([]VideoDocument, error) {
	if s.client == nil {
		return []VideoDocument{}, nil
	}

	if limit <= 0 {
		limit = 20
	}

	res, err := s.client.Index(videosIndex).Search(query, &meilisearch.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		return nil, err
	}

	docs := make([]VideoDocument, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc VideoDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}

	return docs, nil
}
