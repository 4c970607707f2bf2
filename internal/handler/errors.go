package handler

import (
	"context"
	"errors"
	"net/http"

	"helpdesk/internal/middleware"
	"helpdesk/internal/service"
	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// UpstreamFailure is returned with 502 when the question was stored but the bot could not answer
type UpstreamFailure struct {
	ChannelID string `json:"channel_id"`
	Sequence  int64  `json:"sequence"`
}

// respondError maps the service error kinds to HTTP statuses. Storage and
// unknown errors are recorded on the context for the request logger and
// answered with a generic message.
func respondError(c *gin.Context, err error) {
	var upstream *service.UpstreamError
	switch {
	case errors.As(err, &upstream):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, response.ErrorWithDetails(http.StatusBadGateway,
			"message received, bot reply failed",
			UpstreamFailure{ChannelID: upstream.ChannelID, Sequence: upstream.Sequence}))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, response.Error(http.StatusRequestTimeout, "request cancelled or timed out"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// principal is only called behind middleware.Authenticate
func principal(c *gin.Context) service.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}
