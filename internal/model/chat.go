package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SenderEmployee = "employee"
	SenderBot      = "bot"
	SenderHR       = "hr"
)

// DefaultIntent is used when the answer service does not classify a question
const DefaultIntent = "Others"

// Chat is a single message inside a channel. Sequence is 1-based and gapless
// per channel; the composite unique index rejects a second writer that picked
// an already used number.
type Chat struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ChannelID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_chat_channel_seq,priority:1" json:"channel_id"`
	Sender    string    `gorm:"type:varchar(20);not null" json:"sender"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Intent    string    `gorm:"type:varchar(100)" json:"intent,omitempty"`
	Sequence  int64     `gorm:"not null;uniqueIndex:idx_chat_channel_seq,priority:2" json:"sequence"`
	EmpCode   string    `gorm:"type:varchar(50);not null" json:"emp_code"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsHumanSender reports whether a sender role may be written by a person
func IsHumanSender(sender string) bool {
	return sender == SenderEmployee || sender == SenderHR
}
