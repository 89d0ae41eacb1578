package handler

import (
	"net/http"

	"anoa.com/creatorviewer/internal/service"
	"anoa.com/creatorviewer/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AnalyticsHandler struct {
	analyticsService   service.AnalyticsService
	leaderboardService service.LeaderboardService
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService, leaderboardService service.LeaderboardService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService:   analyticsService,
		leaderboardService: leaderboardService,
	}
}

func (h *AnalyticsHandler) GetVideoAnalytics(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	analytics, err := h.analyticsService.VideoAnalytics(c.Request.Context(), videoID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

func (h *AnalyticsHandler) GetMyVideosAnalytics(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	analytics, err := h.analyticsService.CreatorAnalytics(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

func (h *AnalyticsHandler) GetTrending(c *gin.Context) {
	trending, err := h.analyticsService.Trending(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, trending)
}

func (h *AnalyticsHandler) GetLeaderboard(c *gin.Context) {
	leaderboard, err := h.leaderboardService.TopViewers(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboard)
}
