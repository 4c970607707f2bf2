// Package notify fans helpdesk events out to live clients and the event bus.
package notify

import (
	"context"
	"time"
)

const (
	EventChannelCreated       = "channel.created"
	EventChannelStatusChanged = "channel.status_changed"
	EventCategoryAssigned     = "channel.category_assigned"
	EventChatCreated          = "chat.created"
)

// Event describes something that happened to a channel. OwnerID lets
// receivers restrict delivery to the channel owner and HR staff.
type Event struct {
	Type      string    `json:"type"`
	ChannelID string    `json:"channel_id"`
	OwnerID   string    `json:"owner_id"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier must not block the caller for long and must not fail the request
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Multi delivers each event to every notifier in order
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
