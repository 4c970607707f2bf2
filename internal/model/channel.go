package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelStatus string

const (
	ChannelStatusInProgress ChannelStatus = "in progress"
	ChannelStatusResolved   ChannelStatus = "resolved"
	ChannelStatusForwarded  ChannelStatus = "forwarded"
)

// ChannelStatuses lists every value a channel status may hold
var ChannelStatuses = []ChannelStatus{
	ChannelStatusInProgress,
	ChannelStatusResolved,
	ChannelStatusForwarded,
}

// Valid reports whether s is one of the enumerated statuses
func (s ChannelStatus) Valid() bool {
	for _, v := range ChannelStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Channel is one support conversation owned by a single user
type Channel struct {
	ID        uuid.UUID     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID     `gorm:"type:char(36);not null;index" json:"user_id"`
	User      *User         `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"user,omitempty"`
	Status    ChannelStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Category  *string       `gorm:"type:varchar(100)" json:"category"` // set from the first bot classification
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ChannelStatusInProgress
	}
	return nil
}

// HasCategory reports whether the channel was already classified
func (c *Channel) HasCategory() bool {
	return c.Category != nil && *c.Category != ""
}
