package handler

import (
	"net/http"

	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/service"
	"helpdesk/pkg/pagination"
	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	channelService service.ChannelService
	authenticate   gin.HandlerFunc
}

func NewChannelHandler(channelService service.ChannelService, authenticate gin.HandlerFunc) *ChannelHandler {
	return &ChannelHandler{channelService: channelService, authenticate: authenticate}
}

func (h *ChannelHandler) RegisterRoutes(router *gin.RouterGroup) {
	channels := router.Group("/api/channels")
	channels.Use(h.authenticate)
	{
		channels.POST("", h.CreateChannel)
		channels.GET("", middleware.RequireRole(model.RoleHR), h.ListChannels)
		channels.GET("/dashboard", h.Dashboard)
		channels.PUT("/status", h.UpdateStatus)
		channels.GET("/:id", h.GetChannel)
		channels.PUT("/:id/reopen", middleware.RequireRole(model.RoleHR), h.Reopen)
	}
}

// CreateChannel opens an empty channel
// @Summary      Create channel
// @Description  Opens an in-progress channel for the caller; HR may open one for another user
// @Tags         channels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateChannelRequest  false  "Owner (HR only)"
// @Success      201      {object}  response.Response{data=service.ChannelResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/channels [post]
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req service.CreateChannelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request payload")
			return
		}
	}

	channel, err := h.channelService.CreateChannel(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, channel))
}

// ListChannels lists every channel for HR
// @Summary      List channels
// @Tags         channels
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "in progress | resolved | forwarded"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      400     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /api/channels [get]
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	params := pagination.Parse(c)

	channels, total, err := h.channelService.ListChannels(c.Request.Context(), principal(c), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, channels, total, params.Page, params.Limit))
}

// Dashboard returns forwarded channels for HR and own channels for everyone else
// @Summary      Channel dashboard
// @Tags         channels
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/channels/dashboard [get]
func (h *ChannelHandler) Dashboard(c *gin.Context) {
	params := pagination.Parse(c)

	channels, total, err := h.channelService.Dashboard(c.Request.Context(), principal(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, channels, total, params.Page, params.Limit))
}

// UpdateStatus moves a channel through its workflow
// @Summary      Update channel status
// @Description  Resolved channels can only be moved back through the reopen endpoint
// @Tags         channels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateStatusRequest  true  "Channel and target status"
// @Success      200      {object}  response.Response{data=service.ChannelResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/channels/status [put]
func (h *ChannelHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	channel, err := h.channelService.UpdateStatus(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, channel))
}

// GetChannel
// @Summary      Get channel
// @Tags         channels
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  response.Response{data=service.ChannelResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/channels/{id} [get]
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channel, err := h.channelService.GetChannel(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, channel))
}

// Reopen moves a resolved channel back to in progress
// @Summary      Reopen channel
// @Tags         channels
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  response.Response{data=service.ChannelResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/channels/{id}/reopen [put]
func (h *ChannelHandler) Reopen(c *gin.Context) {
	channel, err := h.channelService.Reopen(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, channel))
}
