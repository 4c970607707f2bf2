package model

import (
	"time"
)

// ChannelStatistics summarises the helpdesk workload for the HR dashboard
type ChannelStatistics struct {
	TotalChannels      int64           `json:"total_channels"`
	ByStatus           []StatusCount   `json:"by_status"`
	ByCategory         []CategoryCount `json:"by_category"`
	TotalMessages      int64           `json:"total_messages"`
	TimeRangeStartDate time.Time       `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time       `json:"time_range_end_date"`
}

// StatusCount is the number of channels currently in a status
type StatusCount struct {
	Status ChannelStatus `json:"status"`
	Count  int64         `json:"count"`
}

// CategoryCount ranks question categories by how many channels carry them
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
