package service

import (
	"errors"
	"testing"

	"helpdesk/internal/model"

	"github.com/google/uuid"
)

func TestAuthorize(t *testing.T) {
	owner := uuid.New()
	channel := &model.Channel{ID: uuid.New(), UserID: owner}

	tests := []struct {
		name    string
		p       Principal
		wantErr error
	}{
		{"owner", Principal{UserID: owner.String(), Role: model.RoleEmployee}, nil},
		{"hr", Principal{UserID: uuid.NewString(), Role: model.RoleHR}, nil},
		{"other employee", Principal{UserID: uuid.NewString(), Role: model.RoleEmployee}, ErrForbidden},
		{"anonymous", Principal{}, ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.p, channel)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Authorize() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireHR(t *testing.T) {
	if err := RequireHR(Principal{UserID: "u", Role: model.RoleHR}); err != nil {
		t.Errorf("RequireHR(hr) = %v", err)
	}
	if err := RequireHR(Principal{UserID: "u", Role: model.RoleEmployee}); !errors.Is(err, ErrForbidden) {
		t.Errorf("RequireHR(employee) = %v, want ErrForbidden", err)
	}
	if err := RequireHR(Principal{}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("RequireHR(anonymous) = %v, want ErrUnauthenticated", err)
	}
}
