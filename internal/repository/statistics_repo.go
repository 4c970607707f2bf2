package repository

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountChannelsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error)
	CountChannelsByCategory(ctx context.Context, start, end time.Time, limit int) ([]model.CategoryCount, error)
	CountMessages(ctx context.Context, start, end time.Time) (int64, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountChannelsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	if err := GetDB(ctx, r.db).Model(&model.Channel{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Order("count DESC").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count channels by status: %w", err)
	}
	return counts, nil
}

func (r *statisticsRepository) CountChannelsByCategory(ctx context.Context, start, end time.Time, limit int) ([]model.CategoryCount, error) {
	var counts []model.CategoryCount
	if err := GetDB(ctx, r.db).Model(&model.Channel{}).
		Select("category, COUNT(*) as count").
		Where("category IS NOT NULL AND category <> ''").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("category").
		Order("count DESC").
		Limit(limit).
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count channels by category: %w", err)
	}
	return counts, nil
}

func (r *statisticsRepository) CountMessages(ctx context.Context, start, end time.Time) (int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Chat{}).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return total, nil
}
