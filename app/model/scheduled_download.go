package model

import (
	"time"
)

// ScheduledDownload is a time-triggered queue entry. The scheduler promotes
// it into the download queue once its time arrives; until then it is inert
// data that enable/disable/remove operate on directly.
type ScheduledDownload struct {
	ID            string    `json:"id" gorm:"primarykey;size:36"`
	URL           string    `json:"url" gorm:"not null"`
	Format        string    `json:"format" gorm:"size:20"`
	Quality       string    `json:"quality" gorm:"size:20"`
	ScheduledTime time.Time `json:"scheduled_time" gorm:"index"`
	Enabled       bool      `json:"enabled" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName sets the scheduled downloads table.
func (ScheduledDownload) TableName() string {
	return "scheduled_downloads"
}

// Due reports whether the entry should be promoted at the given time.
func (s *ScheduledDownload) Due(now time.Time) bool {
	return s.Enabled && !s.ScheduledTime.After(now)
}
