package service

import (
	"context"

	"github.com/google/uuid"

	"helpdesk/internal/repository"
)

type AuditLogResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Action    string `json:"action"`
	ChannelID string `json:"channel_id"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, p Principal, channelID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the channel trail newest first; an empty channelID lists everything
func (s *auditService) GetAuditLogs(ctx context.Context, p Principal, channelID string, page, limit int) ([]AuditLogResponse, int64, error) {
	if err := RequireHR(p); err != nil {
		return nil, 0, err
	}
	if channelID != "" {
		if _, err := uuid.Parse(channelID); err != nil {
			return nil, 0, invalid("channel_id is not a valid id")
		}
	}

	logs, total, err := s.repo.List(ctx, channelID, page, limit)
	if err != nil {
		return nil, 0, storageErr("list audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		name := "System"
		userID := ""
		if l.User != nil {
			name = l.User.Name
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:        l.ID.String(),
			UserID:    userID,
			UserName:  name,
			Action:    l.Action,
			ChannelID: l.ChannelID.String(),
			Details:   l.Details,
			CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
