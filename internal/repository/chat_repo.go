package repository

import (
	"context"
	"errors"

	"helpdesk/internal/model"

	"gorm.io/gorm"
)

// ErrDuplicateSequence is returned when (channel_id, sequence) is already taken
var ErrDuplicateSequence = errors.New("sequence already used in channel")

type ChatRepository interface {
	Create(ctx context.Context, chat *model.Chat) error
	MaxSequence(ctx context.Context, channelID string) (int64, error)
	ListByChannel(ctx context.Context, channelID string) ([]model.Chat, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, chat *model.Chat) error {
	err := GetDB(ctx, r.db).Create(chat).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSequence
	}
	return err
}

// MaxSequence returns 0 for a channel without messages
func (r *chatRepository) MaxSequence(ctx context.Context, channelID string) (int64, error) {
	var max int64
	err := GetDB(ctx, r.db).Model(&model.Chat{}).
		Where("channel_id = ?", channelID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error
	return max, err
}

func (r *chatRepository) ListByChannel(ctx context.Context, channelID string) ([]model.Chat, error) {
	var chats []model.Chat
	if err := GetDB(ctx, r.db).Where("channel_id = ?", channelID).Order("sequence asc").Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}
