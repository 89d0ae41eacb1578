package handler

import (
	"net/http"

	"anoa.com/creatorviewer/internal/dto"
	"anoa.com/creatorviewer/internal/service"
	"anoa.com/creatorviewer/pkg/response"
	"anoa.com/creatorviewer/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WatchHandler struct {
	accrualService service.AccrualService
}

func NewWatchHandler(accrualService service.AccrualService) *WatchHandler {
	return &WatchHandler{
		accrualService: accrualService,
	}
}

// ReportWatch accepts a cumulative watch-duration report for a video and
// responds with any points credited by it.
func (h *WatchHandler) ReportWatch(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return
	}

	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.WatchReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	in := service.ReportInput{WatchSeconds: *input.WatchDuration}
	if input.VideoDuration != nil {
		in.ObservedDurationSeconds = *input.VideoDuration
	}

	result, err := h.accrualService.Report(c.Request.Context(), viewerID, videoID, in)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WatchReportResponse{
		Outcome:              string(result.Outcome),
		PointsEarned:         result.PointsEarned,
		AlreadyEarned:        result.AlreadyEarnedBase,
		ContinuingPoints:     result.ContinuingPoints,
		FullyWatched:         result.FullyWatched,
		WatchDuration:        result.CumulativeWatchSeconds,
		VideoDuration:        result.VideoDurationSeconds,
		CompletionPercentage: result.CompletionPercent,
	})
}

// GetProgress returns the stored watch state so a player can restore its
// progress display.
func (h *WatchHandler) GetProgress(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return
	}

	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	progress, err := h.accrualService.Progress(c.Request.Context(), viewerID, videoID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
