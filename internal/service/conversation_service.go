package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"helpdesk/internal/answer"
	"helpdesk/internal/model"
	"helpdesk/internal/notify"
	"helpdesk/internal/repository"
	"helpdesk/internal/sequencer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmitMessageRequest struct {
	ChannelID string `json:"channel_id"` // empty opens a new channel
	Message   string `json:"message" binding:"required"`
}

type EmailMessageRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

type ReplyRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	Sender    string `json:"sender"` // optional, must match the caller's role
	Message   string `json:"message" binding:"required"`
}

type BotReplyResponse struct {
	ChannelID        string `json:"channel_id"`
	Reply            string `json:"reply"`
	Category         string `json:"category"`
	EmployeeSequence int64  `json:"employee_sequence"`
	BotSequence      int64  `json:"bot_sequence"`
}

type ChatResponse struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Intent    string    `json:"intent,omitempty"`
	Sequence  int64     `json:"sequence"`
	EmpCode   string    `json:"emp_code"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type ChannelHistoryResponse struct {
	ChannelID string              `json:"channel_id"`
	Status    model.ChannelStatus `json:"status"`
	Category  *string             `json:"category"`
	Messages  []ChatResponse      `json:"messages"`
}

// ConversationService is the only writer of chat messages
type ConversationService interface {
	SubmitEmployeeMessage(ctx context.Context, p Principal, req SubmitMessageRequest) (*BotReplyResponse, error)
	SubmitEmailMessage(ctx context.Context, req EmailMessageRequest) (*BotReplyResponse, error)
	ReplyAsHumanAgent(ctx context.Context, p Principal, req ReplyRequest) (*ChatResponse, error)
	ListChannelHistory(ctx context.Context, p Principal, channelID string) (*ChannelHistoryResponse, error)
}

type conversationService struct {
	userRepo    repository.UserRepository
	channelRepo repository.ChannelRepository
	chatRepo    repository.ChatRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	seq         *sequencer.Sequencer
	asker       answer.Asker
	notifier    notify.Notifier
	logger      *zap.Logger
}

func NewConversationService(
	userRepo repository.UserRepository,
	channelRepo repository.ChannelRepository,
	chatRepo repository.ChatRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	seq *sequencer.Sequencer,
	asker answer.Asker,
	notifier notify.Notifier,
	logger *zap.Logger,
) ConversationService {
	return &conversationService{
		userRepo:    userRepo,
		channelRepo: channelRepo,
		chatRepo:    chatRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		seq:         seq,
		asker:       asker,
		notifier:    notifier,
		logger:      logger,
	}
}

func mapChatResponse(c *model.Chat) ChatResponse {
	return ChatResponse{
		ID:        c.ID.String(),
		ChannelID: c.ChannelID.String(),
		Sender:    c.Sender,
		Message:   c.Message,
		Intent:    c.Intent,
		Sequence:  c.Sequence,
		EmpCode:   c.EmpCode,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}
}

func (s *conversationService) SubmitEmployeeMessage(ctx context.Context, p Principal, req SubmitMessageRequest) (*BotReplyResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, invalid("message is required")
	}

	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, lookupErr("user", err)
	}

	var channel *model.Channel
	if req.ChannelID != "" {
		id, err := parseChannelID(req.ChannelID)
		if err != nil {
			return nil, err
		}
		if channel, err = s.channelRepo.FindByID(ctx, id.String()); err != nil {
			return nil, lookupErr("channel", err)
		}
		if err := Authorize(p, channel); err != nil {
			return nil, err
		}
	} else {
		if channel, err = s.open(ctx, &user.ID, user); err != nil {
			return nil, err
		}
	}

	return s.converse(ctx, user, channel, text)
}

// SubmitEmailMessage handles mail-originated questions; every mail opens its own channel
func (s *conversationService) SubmitEmailMessage(ctx context.Context, req EmailMessageRequest) (*BotReplyResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, invalid("message is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, invalid("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, lookupErr("user", err)
	}

	channel, err := s.open(ctx, &user.ID, user)
	if err != nil {
		return nil, err
	}
	return s.converse(ctx, user, channel, text)
}

func (s *conversationService) open(ctx context.Context, actor *uuid.UUID, owner *model.User) (*model.Channel, error) {
	channel, err := openChannel(ctx, s.txManager, s.channelRepo, s.auditRepo, actor, owner)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventChannelCreated,
		ChannelID: channel.ID.String(),
		OwnerID:   owner.ID.String(),
		Data:      mapChannelResponse(channel),
	})
	return channel, nil
}

// converse stores the employee message, asks the answer service and stores the
// bot reply right after it. The channel lock is held for the whole exchange
// so the pair occupies seq and seq+1.
func (s *conversationService) converse(ctx context.Context, user *model.User, channel *model.Channel, text string) (*BotReplyResponse, error) {
	channelID := channel.ID.String()

	release, err := s.seq.Acquire(ctx, channelID)
	if err != nil {
		return nil, lockErr(err)
	}
	defer release()

	employeeMsg := &model.Chat{
		ChannelID: channel.ID,
		Sender:    model.SenderEmployee,
		Message:   text,
		EmpCode:   user.EmployeeCode,
		Email:     user.Email,
	}
	seq, err := s.seq.Reserve(ctx, channelID, s.writer(employeeMsg))
	if err != nil {
		return nil, storageErr("store employee message", err)
	}
	s.announce(ctx, channel, employeeMsg)

	ans, err := s.asker.Ask(ctx, user.EmployeeCode, text)
	if err != nil {
		s.logger.Warn("answer service failed",
			zap.String("channel_id", channelID),
			zap.Int64("sequence", seq),
			zap.Error(err),
		)
		return nil, &UpstreamError{ChannelID: channelID, Sequence: seq, Err: err}
	}

	category := ans.Category
	if category == "" {
		category = model.DefaultIntent
	}
	botMsg := &model.Chat{
		ChannelID: channel.ID,
		Sender:    model.SenderBot,
		Message:   ans.Content,
		Intent:    category,
		EmpCode:   user.EmployeeCode,
		Email:     user.Email,
	}
	botSeq, err := s.seq.ReserveAt(ctx, channelID, seq+1, s.writer(botMsg))
	if err != nil {
		return nil, storageErr("store bot message", err)
	}
	s.announce(ctx, channel, botMsg)

	if !channel.HasCategory() {
		s.assignCategory(ctx, channel, category)
	}

	return &BotReplyResponse{
		ChannelID:        channelID,
		Reply:            ans.Content,
		Category:         category,
		EmployeeSequence: seq,
		BotSequence:      botSeq,
	}, nil
}

func (s *conversationService) writer(msg *model.Chat) sequencer.WriteFunc {
	return func(ctx context.Context, seq int64) error {
		msg.Sequence = seq
		return s.chatRepo.Create(ctx, msg)
	}
}

// assignCategory is best effort: the reply is already stored and returned
func (s *conversationService) assignCategory(ctx context.Context, channel *model.Channel, category string) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		set, err := s.channelRepo.SetCategoryIfEmpty(txCtx, channel.ID.String(), category)
		if err != nil || !set {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, nil, model.ActionAssignCategory, channel.ID, map[string]string{
			"category": category,
		})
	})
	if err != nil {
		s.logger.Warn("failed to assign channel category",
			zap.String("channel_id", channel.ID.String()),
			zap.Error(err),
		)
		return
	}

	channel.Category = &category
	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventCategoryAssigned,
		ChannelID: channel.ID.String(),
		OwnerID:   channel.UserID.String(),
		Data:      map[string]string{"category": category},
	})
}

func (s *conversationService) announce(ctx context.Context, channel *model.Channel, msg *model.Chat) {
	if err := s.channelRepo.Touch(ctx, channel.ID.String()); err != nil {
		s.logger.Warn("failed to touch channel", zap.String("channel_id", channel.ID.String()), zap.Error(err))
	}
	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventChatCreated,
		ChannelID: channel.ID.String(),
		OwnerID:   channel.UserID.String(),
		Data:      mapChatResponse(msg),
	})
}

func (s *conversationService) ReplyAsHumanAgent(ctx context.Context, p Principal, req ReplyRequest) (*ChatResponse, error) {
	sender := senderFor(p)
	if req.Sender != "" {
		if !model.IsHumanSender(req.Sender) {
			return nil, invalid("sender must be %q or %q", model.SenderHR, model.SenderEmployee)
		}
		if req.Sender != sender {
			return nil, fmt.Errorf("%w: a %s may only reply as %q", ErrForbidden, p.Role, sender)
		}
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, invalid("message is required")
	}

	agent, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, lookupErr("user", err)
	}

	id, err := parseChannelID(req.ChannelID)
	if err != nil {
		return nil, err
	}
	channel, err := s.channelRepo.FindByID(ctx, id.String())
	if err != nil {
		return nil, lookupErr("channel", err)
	}
	if err := Authorize(p, channel); err != nil {
		return nil, err
	}

	release, err := s.seq.Acquire(ctx, id.String())
	if err != nil {
		return nil, lockErr(err)
	}
	defer release()

	msg := &model.Chat{
		ChannelID: channel.ID,
		Sender:    sender,
		Message:   text,
		EmpCode:   agent.EmployeeCode,
		Email:     agent.Email,
	}
	if _, err := s.seq.Reserve(ctx, id.String(), s.writer(msg)); err != nil {
		return nil, storageErr("store reply", err)
	}
	s.announce(ctx, channel, msg)

	res := mapChatResponse(msg)
	return &res, nil
}

// senderFor derives the message author from the caller's stored role
func senderFor(p Principal) string {
	if p.IsHR() {
		return model.SenderHR
	}
	return model.SenderEmployee
}

func (s *conversationService) ListChannelHistory(ctx context.Context, p Principal, channelID string) (*ChannelHistoryResponse, error) {
	id, err := parseChannelID(channelID)
	if err != nil {
		return nil, err
	}
	channel, err := s.channelRepo.FindByID(ctx, id.String())
	if err != nil {
		return nil, lookupErr("channel", err)
	}
	if err := Authorize(p, channel); err != nil {
		return nil, err
	}

	chats, err := s.chatRepo.ListByChannel(ctx, id.String())
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	slices.SortStableFunc(chats, func(a, b model.Chat) int { return cmp.Compare(a.Sequence, b.Sequence) })

	messages := make([]ChatResponse, 0, len(chats))
	for i := range chats {
		messages = append(messages, mapChatResponse(&chats[i]))
	}
	return &ChannelHistoryResponse{
		ChannelID: channel.ID.String(),
		Status:    channel.Status,
		Category:  channel.Category,
		Messages:  messages,
	}, nil
}
