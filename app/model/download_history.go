package model

import (
	"time"
)

// DownloadHistory records one finished download for the history view.
type DownloadHistory struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	URL          string    `json:"url" gorm:"not null"`
	Title        string    `json:"title"`
	Format       string    `json:"format" gorm:"size:20"`
	Quality      string    `json:"quality" gorm:"size:20"`
	FilePath     string    `json:"file_path"`
	SizeBytes    int64     `json:"size_bytes"`
	DurationSecs float64   `json:"duration_secs"`
	CompletedAt  time.Time `json:"completed_at" gorm:"index"`
}

// TableName sets the history table.
func (DownloadHistory) TableName() string {
	return "download_history"
}

// DownloadStats are aggregate counters shown alongside the history list.
type DownloadStats struct {
	TotalDownloads int64 `json:"total_downloads"`
	TotalBytes     int64 `json:"total_bytes"`
}
