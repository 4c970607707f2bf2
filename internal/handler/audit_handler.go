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

type AuditHandler struct {
	auditService service.AuditService
	authenticate gin.HandlerFunc
}

func NewAuditHandler(auditService service.AuditService, authenticate gin.HandlerFunc) *AuditHandler {
	return &AuditHandler{auditService: auditService, authenticate: authenticate}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.authenticate, middleware.RequireRole(model.RoleHR))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the change history of channels, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        channel_id  query     string  false  "Only entries of this channel"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.Page}
// @Failure      400         {object}  response.Response
// @Failure      403         {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), principal(c), c.Query("channel_id"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, total, params.Page, params.Limit))
}
