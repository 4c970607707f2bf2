package handler

import (
	"net/http"
	"time"

	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/service"
	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	authenticate      gin.HandlerFunc
}

func NewStatisticsHandler(statisticsService service.StatisticsService, authenticate gin.HandlerFunc) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, authenticate: authenticate}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("/channels", h.authenticate, middleware.RequireRole(model.RoleHR), h.GetChannelStatistics)
	}
}

// @Summary      Channel statistics
// @Description  Channel counts by status and category plus message volume, bounded by time
// @Tags         statistics
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339), default first day of month"
// @Param        end_date   query string false "End Date (RFC3339), default now"
// @Success      200 {object} response.Response{data=model.ChannelStatistics}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      403 {object} response.Response "Forbidden"
// @Security     BearerAuth
// @Router       /api/statistics/channels [get]
func (h *StatisticsHandler) GetChannelStatistics(c *gin.Context) {
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := now

	var err error
	if s := c.Query("start_date"); s != "" {
		if startDate, err = time.Parse(time.RFC3339, s); err != nil {
			badRequest(c, "invalid start_date format, expected RFC3339")
			return
		}
	}
	if s := c.Query("end_date"); s != "" {
		if endDate, err = time.Parse(time.RFC3339, s); err != nil {
			badRequest(c, "invalid end_date format, expected RFC3339")
			return
		}
	}

	stats, err := h.statisticsService.GetChannelStatistics(c.Request.Context(), principal(c), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
