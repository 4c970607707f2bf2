package repository

import (
	"context"

	"helpdesk/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChannelFilter narrows channel listings; zero values mean "any"
type ChannelFilter struct {
	UserID string
	Status model.ChannelStatus
	Page   int
	Limit  int
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *model.Channel) error
	FindByID(ctx context.Context, id string) (*model.Channel, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Channel, error)
	UpdateStatus(ctx context.Context, id string, status model.ChannelStatus) error
	SetCategoryIfEmpty(ctx context.Context, id, category string) (bool, error)
	Touch(ctx context.Context, id string) error
	List(ctx context.Context, filter ChannelFilter) ([]model.Channel, int64, error)
}

type channelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, channel *model.Channel) error {
	return GetDB(ctx, r.db).Create(channel).Error
}

func (r *channelRepository) FindByID(ctx context.Context, id string) (*model.Channel, error) {
	var channel model.Channel
	if err := GetDB(ctx, r.db).Preload("User").First(&channel, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// FindByIDForUpdate locks the channel row for the rest of the surrounding transaction
func (r *channelRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Channel, error) {
	var channel model.Channel
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&channel, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) UpdateStatus(ctx context.Context, id string, status model.ChannelStatus) error {
	res := GetDB(ctx, r.db).Model(&model.Channel{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetCategoryIfEmpty assigns the category only when none is stored yet and
// reports whether this call was the one that set it.
func (r *channelRepository) SetCategoryIfEmpty(ctx context.Context, id, category string) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Channel{}).
		Where("id = ? AND (category IS NULL OR category = '')", id).
		Update("category", category)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Touch bumps updated_at so dashboards surface channels with fresh messages
func (r *channelRepository) Touch(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Model(&model.Channel{}).Where("id = ?", id).Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *channelRepository) List(ctx context.Context, filter ChannelFilter) ([]model.Channel, int64, error) {
	var channels []model.Channel
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Channel{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("User").Order("updated_at desc").Offset(offset).Limit(filter.Limit).Find(&channels).Error; err != nil {
		return nil, 0, err
	}

	return channels, total, nil
}
