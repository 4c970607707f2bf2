package service

import (
	"fmt"

	"helpdesk/internal/model"
)

// Principal is the authenticated caller as resolved from an access token
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) IsHR() bool {
	return p.Role == model.RoleHR
}

// Authorize allows the channel owner and HR staff
func Authorize(p Principal, channel *model.Channel) error {
	if p.UserID == "" {
		return ErrUnauthenticated
	}
	if p.IsHR() || channel.UserID.String() == p.UserID {
		return nil
	}
	return fmt.Errorf("%w: channel belongs to another user", ErrForbidden)
}

func RequireHR(p Principal) error {
	if p.UserID == "" {
		return ErrUnauthenticated
	}
	if !p.IsHR() {
		return fmt.Errorf("%w: hr role required", ErrForbidden)
	}
	return nil
}
