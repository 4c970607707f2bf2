package handler

import (
	"net/http"

	"helpdesk/internal/service"
	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	conversationService service.ConversationService
	authenticate        gin.HandlerFunc
	limiter             gin.HandlerFunc
}

func NewChatHandler(conversationService service.ConversationService, authenticate, limiter gin.HandlerFunc) *ChatHandler {
	return &ChatHandler{conversationService: conversationService, authenticate: authenticate, limiter: limiter}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	chat := router.Group("/api/channels")
	{
		chat.POST("/chat", h.authenticate, h.limiter, h.SubmitMessage)
		chat.POST("/chat-email", h.limiter, h.SubmitEmailMessage)
		chat.POST("/reply", h.authenticate, h.Reply)
		chat.GET("/:id/chat", h.authenticate, h.History)
	}
}

// SubmitMessage stores the employee question and the bot answer
// @Summary      Ask a question
// @Description  Opens a channel when channel_id is empty. A 502 means the question was stored but the bot reply failed.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitMessageRequest  true  "Question"
// @Success      200      {object}  response.Response{data=service.BotReplyResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Failure      502      {object}  response.Response{details=handler.UpstreamFailure}
// @Router       /api/channels/chat [post]
func (h *ChatHandler) SubmitMessage(c *gin.Context) {
	var req service.SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	reply, err := h.conversationService.SubmitEmployeeMessage(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reply))
}

// SubmitEmailMessage handles questions that arrive by mail
// @Summary      Ask by email
// @Description  Resolves the employee by email and always opens a new channel
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        payload  body      service.EmailMessageRequest  true  "Sender and question"
// @Success      200      {object}  response.Response{data=service.BotReplyResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      502      {object}  response.Response{details=handler.UpstreamFailure}
// @Router       /api/channels/chat-email [post]
func (h *ChatHandler) SubmitEmailMessage(c *gin.Context) {
	var req service.EmailMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	reply, err := h.conversationService.SubmitEmailMessage(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reply))
}

// Reply posts a human message without calling the bot
// @Summary      Human reply
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ReplyRequest  true  "Reply"
// @Success      201      {object}  response.Response{data=service.ChatResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/channels/reply [post]
func (h *ChatHandler) Reply(c *gin.Context) {
	var req service.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	msg, err := h.conversationService.ReplyAsHumanAgent(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}

// History returns the channel status and its messages in sequence order
// @Summary      Channel history
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  response.Response{data=service.ChannelHistoryResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/channels/{id}/chat [get]
func (h *ChatHandler) History(c *gin.Context) {
	history, err := h.conversationService.ListChannelHistory(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}
