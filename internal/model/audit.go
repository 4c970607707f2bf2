package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateChannel       = "CREATE_CHANNEL"
	ActionUpdateChannelStatus = "UPDATE_CHANNEL_STATUS"
	ActionReopenChannel       = "REOPEN_CHANNEL"
	ActionAssignCategory      = "ASSIGN_CATEGORY"
)

// AuditLog tracks who changed a channel, what changed and when
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:char(36);index" json:"user_id"` // nil when the bot classified the channel
	User      *User      `gorm:"foreignKey:UserID" json:"user"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	ChannelID uuid.UUID  `gorm:"type:char(36);not null;index" json:"channel_id"`
	Details   string     `gorm:"type:text" json:"details"` // JSON payload of the change
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
