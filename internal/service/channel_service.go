package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"helpdesk/internal/model"
	"helpdesk/internal/notify"
	"helpdesk/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateChannelRequest struct {
	UserID string `json:"user_id"` // HR only; defaults to the caller
}

type UpdateStatusRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

type ChannelResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Name         string              `json:"name,omitempty"`
	EmployeeCode string              `json:"employee_code,omitempty"`
	Email        string              `json:"email,omitempty"`
	Status       model.ChannelStatus `json:"status"`
	Category     *string             `json:"category"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ChannelService owns channel lifecycle and the status workflow
type ChannelService interface {
	CreateChannel(ctx context.Context, p Principal, req CreateChannelRequest) (*ChannelResponse, error)
	GetChannel(ctx context.Context, p Principal, channelID string) (*ChannelResponse, error)
	UpdateStatus(ctx context.Context, p Principal, req UpdateStatusRequest) (*ChannelResponse, error)
	Reopen(ctx context.Context, p Principal, channelID string) (*ChannelResponse, error)
	Dashboard(ctx context.Context, p Principal, page, limit int) ([]ChannelResponse, int64, error)
	ListChannels(ctx context.Context, p Principal, status string, page, limit int) ([]ChannelResponse, int64, error)
}

type channelService struct {
	userRepo    repository.UserRepository
	channelRepo repository.ChannelRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    notify.Notifier
	logger      *zap.Logger
}

func NewChannelService(
	userRepo repository.UserRepository,
	channelRepo repository.ChannelRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier notify.Notifier,
	logger *zap.Logger,
) ChannelService {
	return &channelService{
		userRepo:    userRepo,
		channelRepo: channelRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    notifier,
		logger:      logger,
	}
}

func mapChannelResponse(ch *model.Channel) *ChannelResponse {
	res := &ChannelResponse{
		ID:        ch.ID.String(),
		UserID:    ch.UserID.String(),
		Status:    ch.Status,
		Category:  ch.Category,
		CreatedAt: ch.CreatedAt,
		UpdatedAt: ch.UpdatedAt,
	}
	if ch.User != nil {
		res.Name = ch.User.Name
		res.EmployeeCode = ch.User.EmployeeCode
		res.Email = ch.User.Email
	}
	return res
}

func actorID(p Principal) *uuid.UUID {
	id, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil
	}
	return &id
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor *uuid.UUID, action string, channelID uuid.UUID, details any) error {
	raw, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:    actor,
		Action:    action,
		ChannelID: channelID,
		Details:   string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// openChannel creates an in-progress channel for owner together with its audit entry
func openChannel(
	ctx context.Context,
	txManager repository.TransactionManager,
	channelRepo repository.ChannelRepository,
	auditRepo repository.AuditRepository,
	actor *uuid.UUID,
	owner *model.User,
) (*model.Channel, error) {
	channel := &model.Channel{
		UserID: owner.ID,
		Status: model.ChannelStatusInProgress,
	}
	err := txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := channelRepo.Create(txCtx, channel); err != nil {
			return fmt.Errorf("failed to create channel: %w", err)
		}
		return writeAudit(txCtx, auditRepo, actor, model.ActionCreateChannel, channel.ID, map[string]string{
			"owner_id": owner.ID.String(),
			"status":   string(channel.Status),
		})
	})
	if err != nil {
		return nil, storageErr("open channel", err)
	}
	channel.User = owner
	return channel, nil
}

func (s *channelService) CreateChannel(ctx context.Context, p Principal, req CreateChannelRequest) (*ChannelResponse, error) {
	ownerID := p.UserID
	if req.UserID != "" && req.UserID != p.UserID {
		if !p.IsHR() {
			return nil, fmt.Errorf("%w: only hr may open channels for other users", ErrForbidden)
		}
		if _, err := uuid.Parse(req.UserID); err != nil {
			return nil, invalid("user_id is not a valid id")
		}
		ownerID = req.UserID
	}

	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, lookupErr("user", err)
	}

	channel, err := openChannel(ctx, s.txManager, s.channelRepo, s.auditRepo, actorID(p), owner)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventChannelCreated,
		ChannelID: channel.ID.String(),
		OwnerID:   owner.ID.String(),
		Data:      mapChannelResponse(channel),
	})
	return mapChannelResponse(channel), nil
}

func (s *channelService) GetChannel(ctx context.Context, p Principal, channelID string) (*ChannelResponse, error) {
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
	return mapChannelResponse(channel), nil
}

// UpdateStatus is the generic status path. A resolved channel stays resolved
// here; moving it back is Reopen's job.
func (s *channelService) UpdateStatus(ctx context.Context, p Principal, req UpdateStatusRequest) (*ChannelResponse, error) {
	status := model.ChannelStatus(req.Status)
	if !status.Valid() {
		return nil, invalid("status must be one of %q, %q, %q",
			model.ChannelStatusInProgress, model.ChannelStatusResolved, model.ChannelStatusForwarded)
	}
	id, err := parseChannelID(req.ChannelID)
	if err != nil {
		return nil, err
	}

	var previous model.ChannelStatus
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		channel, err := s.channelRepo.FindByIDForUpdate(txCtx, id.String())
		if err != nil {
			return lookupErr("channel", err)
		}
		if err := Authorize(p, channel); err != nil {
			return err
		}
		previous = channel.Status
		if previous == status {
			return nil
		}
		if previous == model.ChannelStatusResolved {
			return invalid("channel is resolved; use reopen")
		}

		if err := s.channelRepo.UpdateStatus(txCtx, id.String(), status); err != nil {
			return storageErr("update status", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, actorID(p), model.ActionUpdateChannelStatus, id, map[string]string{
			"from": string(previous),
			"to":   string(status),
		}); err != nil {
			return storageErr("update status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndAnnounce(ctx, id, previous)
}

func (s *channelService) Reopen(ctx context.Context, p Principal, channelID string) (*ChannelResponse, error) {
	if err := RequireHR(p); err != nil {
		return nil, err
	}
	id, err := parseChannelID(channelID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		channel, err := s.channelRepo.FindByIDForUpdate(txCtx, id.String())
		if err != nil {
			return lookupErr("channel", err)
		}
		if channel.Status != model.ChannelStatusResolved {
			return invalid("only resolved channels can be reopened")
		}
		if err := s.channelRepo.UpdateStatus(txCtx, id.String(), model.ChannelStatusInProgress); err != nil {
			return storageErr("reopen channel", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, actorID(p), model.ActionReopenChannel, id, map[string]string{
			"from": string(model.ChannelStatusResolved),
			"to":   string(model.ChannelStatusInProgress),
		}); err != nil {
			return storageErr("reopen channel", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reloadAndAnnounce(ctx, id, model.ChannelStatusResolved)
}

func (s *channelService) reloadAndAnnounce(ctx context.Context, id uuid.UUID, previous model.ChannelStatus) (*ChannelResponse, error) {
	channel, err := s.channelRepo.FindByID(ctx, id.String())
	if err != nil {
		return nil, lookupErr("channel", err)
	}
	res := mapChannelResponse(channel)

	if channel.Status != previous {
		s.logger.Info("channel status changed",
			zap.String("channel_id", res.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(channel.Status)),
		)
		s.notifier.Notify(ctx, notify.Event{
			Type:      notify.EventChannelStatusChanged,
			ChannelID: res.ID,
			OwnerID:   res.UserID,
			Data:      res,
		})
	}
	return res, nil
}

// Dashboard shows HR the forwarded queue and everyone else their own channels
func (s *channelService) Dashboard(ctx context.Context, p Principal, page, limit int) ([]ChannelResponse, int64, error) {
	if p.UserID == "" {
		return nil, 0, ErrUnauthenticated
	}
	filter := repository.ChannelFilter{Page: page, Limit: limit}
	if p.IsHR() {
		filter.Status = model.ChannelStatusForwarded
	} else {
		filter.UserID = p.UserID
	}
	return s.list(ctx, filter)
}

func (s *channelService) ListChannels(ctx context.Context, p Principal, status string, page, limit int) ([]ChannelResponse, int64, error) {
	if err := RequireHR(p); err != nil {
		return nil, 0, err
	}
	filter := repository.ChannelFilter{Page: page, Limit: limit}
	if status != "" {
		st := model.ChannelStatus(status)
		if !st.Valid() {
			return nil, 0, invalid("unknown status %q", status)
		}
		filter.Status = st
	}
	return s.list(ctx, filter)
}

func (s *channelService) list(ctx context.Context, filter repository.ChannelFilter) ([]ChannelResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	channels, total, err := s.channelRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageErr("list channels", err)
	}

	res := make([]ChannelResponse, 0, len(channels))
	for i := range channels {
		res = append(res, *mapChannelResponse(&channels[i]))
	}
	return res, total, nil
}
