package service

import (
	"context"
	"time"

	"helpdesk/internal/model"
	"helpdesk/internal/repository"
)

const topCategories = 10

type StatisticsService interface {
	GetChannelStatistics(ctx context.Context, p Principal, startDate, endDate time.Time) (*model.ChannelStatistics, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetChannelStatistics counts channels created in the window by status and category
func (s *statisticsService) GetChannelStatistics(ctx context.Context, p Principal, startDate, endDate time.Time) (*model.ChannelStatistics, error) {
	if err := RequireHR(p); err != nil {
		return nil, err
	}
	if endDate.Before(startDate) {
		return nil, invalid("end_date is before start_date")
	}

	stats := &model.ChannelStatistics{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	byStatus, err := s.repo.CountChannelsByStatus(ctx, startDate, endDate)
	if err != nil {
		return nil, storageErr("statistics", err)
	}
	// every status is reported, including the empty ones
	counts := make(map[model.ChannelStatus]int64, len(byStatus))
	for _, c := range byStatus {
		counts[c.Status] = c.Count
		stats.TotalChannels += c.Count
	}
	stats.ByStatus = make([]model.StatusCount, 0, len(model.ChannelStatuses))
	for _, st := range model.ChannelStatuses {
		stats.ByStatus = append(stats.ByStatus, model.StatusCount{Status: st, Count: counts[st]})
	}

	if stats.ByCategory, err = s.repo.CountChannelsByCategory(ctx, startDate, endDate, topCategories); err != nil {
		return nil, storageErr("statistics", err)
	}
	if stats.ByCategory == nil {
		stats.ByCategory = []model.CategoryCount{}
	}

	if stats.TotalMessages, err = s.repo.CountMessages(ctx, startDate, endDate); err != nil {
		return nil, storageErr("statistics", err)
	}

	return stats, nil
}
