package service

import (
	"sync"

	"gorm.io/gorm"

	"downpour/app/logger"
	"downpour/app/model"
)

// historyCap bounds the history table; the oldest rows make room for new
// ones once it is reached.
const historyCap = 500

// HistoryService records finished downloads. Writes go straight to sqlite;
// there is no in-memory copy to keep consistent.
type HistoryService struct {
	logger *logger.Logger
	db     *gorm.DB
	mu     sync.Mutex
}

// NewHistoryService creates the recorder. db may be nil, which turns every
// operation into a no-op so callers never need to care.
func NewHistoryService(log *logger.Logger, db *gorm.DB) *HistoryService {
	return &HistoryService{logger: log, db: db}
}

// Record appends one completed download and trims the table back under the
// cap.
func (s *HistoryService) Record(cfg model.DownloadConfig, filePath string, progress *model.Progress) {
	if s.db == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := model.DownloadHistory{
		URL:         cfg.URL,
		Format:      cfg.Format,
		Quality:     cfg.Quality,
		FilePath:    filePath,
		CompletedAt: nowFunc(),
	}
	if progress != nil {
		entry.SizeBytes = progress.TotalBytes
		if entry.SizeBytes == 0 {
			entry.SizeBytes = progress.DownloadedBytes
		}
	}

	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.Errorf("history record failed: %v", err)
		return
	}

	var count int64
	if err := s.db.Model(&model.DownloadHistory{}).Count(&count).Error; err != nil {
		return
	}
	if count <= historyCap {
		return
	}

	// drop the oldest rows beyond the cap
	var cutoff model.DownloadHistory
	if err := s.db.Order("completed_at desc, id desc").Offset(historyCap - 1).First(&cutoff).Error; err != nil {
		return
	}
	if err := s.db.Where("completed_at < ? OR (completed_at = ? AND id < ?)",
		cutoff.CompletedAt, cutoff.CompletedAt, cutoff.ID).
		Delete(&model.DownloadHistory{}).Error; err != nil {
		s.logger.Errorf("history trim failed: %v", err)
	}
}

// List returns history entries newest first, up to limit (0 means all).
func (s *HistoryService) List(limit int) ([]model.DownloadHistory, error) {
	if s.db == nil {
		return nil, nil
	}

	q := s.db.Order("completed_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []model.DownloadHistory
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes one history entry.
func (s *HistoryService) Delete(id uint) error {
	if s.db == nil {
		return nil
	}
	return s.db.Delete(&model.DownloadHistory{}, id).Error
}

// Clear wipes the history.
func (s *HistoryService) Clear() error {
	if s.db == nil {
		return nil
	}
	return s.db.Where("1 = 1").Delete(&model.DownloadHistory{}).Error
}

// Stats aggregates the totals shown above the history list.
func (s *HistoryService) Stats() (model.DownloadStats, error) {
	var stats model.DownloadStats
	if s.db == nil {
		return stats, nil
	}
	if err := s.db.Model(&model.DownloadHistory{}).Count(&stats.TotalDownloads).Error; err != nil {
		return stats, err
	}
	err := s.db.Model(&model.DownloadHistory{}).
		Select("COALESCE(SUM(size_bytes), 0)").Scan(&stats.TotalBytes).Error
	return stats, err
}
