package model

import (
	"time"
)

// Queue item status constants. Queue items use a reduced lifecycle: the
// analyzing/starting/cancelling phases of the single-job machine all
// surface as pending or downloading.
const (
	QueueStatusPending     = "pending"
	QueueStatusDownloading = "downloading"
	QueueStatusMerging     = "merging"
	QueueStatusCompleted   = "completed"
	QueueStatusFailed      = "failed"
	QueueStatusCancelled   = "cancelled"
)

// QueueItem is one entry in the multi-item download queue. The scheduler
// owns it exclusively; everything handed out is a copy.
type QueueItem struct {
	ID         uint64         `json:"id" gorm:"primarykey;autoIncrement:false"`
	Config     DownloadConfig `json:"config" gorm:"embedded;embeddedPrefix:cfg_"`
	Status     string         `json:"status" gorm:"size:20;default:pending;index"`
	Progress   float64        `json:"progress"`
	Speed      string         `json:"speed"`
	ETASeconds int64          `json:"eta_seconds,omitempty"`
	Error      string         `json:"error,omitempty" gorm:"type:text"`
	FilePath   string         `json:"file_path,omitempty"`
	Title      string         `json:"title,omitempty"`
	Thumbnail  string         `json:"thumbnail,omitempty"`
	// Position persists the relative order of pending items across restarts
	Position  int       `json:"position" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	// FinishedAt orders terminal items most-recent-first in snapshots
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TableName sets the queue snapshot table.
func (QueueItem) TableName() string {
	return "queue_items"
}

// IsTerminal reports whether the item has reached an end status.
func (q *QueueItem) IsTerminal() bool {
	switch q.Status {
	case QueueStatusCompleted, QueueStatusFailed, QueueStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the item is currently executing.
func (q *QueueItem) IsActive() bool {
	return q.Status == QueueStatusDownloading || q.Status == QueueStatusMerging
}

// SetDownloading marks the item as picked up by the executor.
func (q *QueueItem) SetDownloading() {
	q.Status = QueueStatusDownloading
}

// SetCompleted marks the item as finished with its output path.
func (q *QueueItem) SetCompleted(filePath string) {
	now := time.Now()
	q.Status = QueueStatusCompleted
	q.Progress = 100
	q.FilePath = filePath
	q.Speed = ""
	q.ETASeconds = 0
	q.Error = ""
	q.FinishedAt = &now
}

// SetFailed marks the item as failed with the given message.
func (q *QueueItem) SetFailed(message string) {
	now := time.Now()
	q.Status = QueueStatusFailed
	q.Error = message
	q.Speed = ""
	q.ETASeconds = 0
	q.FinishedAt = &now
}

// SetCancelled marks the item as cancelled by the user.
func (q *QueueItem) SetCancelled() {
	now := time.Now()
	q.Status = QueueStatusCancelled
	q.Speed = ""
	q.ETASeconds = 0
	q.FinishedAt = &now
}

// ApplyProgress copies a progress report onto the item. A merging status
// flag in the report promotes the item to merging.
func (q *QueueItem) ApplyProgress(p Progress) {
	q.Progress = p.Percentage
	q.Speed = p.Speed
	q.ETASeconds = p.ETASeconds
	if p.Status == "merging" {
		q.Status = QueueStatusMerging
	}
}
