package service

import (
	"context"
	"errors"
	"testing"

	"helpdesk/internal/model"

	"github.com/google/uuid"
)

func TestGetAuditLogs(t *testing.T) {
	repo := &fakeAuditRepo{}
	channelA, channelB := uuid.New(), uuid.New()
	actor := uuid.New()
	ctx := context.Background()

	_ = repo.Log(ctx, &model.AuditLog{ID: uuid.New(), UserID: &actor, User: &model.User{Name: "Helen"}, Action: model.ActionUpdateChannelStatus, ChannelID: channelA})
	_ = repo.Log(ctx, &model.AuditLog{ID: uuid.New(), Action: model.ActionAssignCategory, ChannelID: channelA})
	_ = repo.Log(ctx, &model.AuditLog{ID: uuid.New(), Action: model.ActionCreateChannel, ChannelID: channelB})

	svc := NewAuditService(repo)
	hr := Principal{UserID: actor.String(), Role: model.RoleHR}

	logs, total, err := svc.GetAuditLogs(ctx, hr, channelA.String(), 1, 20)
	if err != nil {
		t.Fatalf("GetAuditLogs() error = %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if logs[0].UserName != "Helen" || logs[0].UserID != actor.String() {
		t.Errorf("first entry = %+v", logs[0])
	}
	if logs[1].UserName != "System" || logs[1].UserID != "" {
		t.Errorf("bot entry = %+v, want System", logs[1])
	}

	if _, _, err := svc.GetAuditLogs(ctx, hr, "nope", 1, 20); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad channel id error = %v, want ErrInvalidInput", err)
	}
	if _, _, err := svc.GetAuditLogs(ctx, Principal{UserID: "e", Role: model.RoleEmployee}, "", 1, 20); !errors.Is(err, ErrForbidden) {
		t.Errorf("employee error = %v, want ErrForbidden", err)
	}
}
