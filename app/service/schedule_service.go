package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"downpour/app/logger"
	"downpour/app/model"
)

// ErrScheduleNotFound means no scheduled entry carries the given id
var ErrScheduleNotFound = errors.New("scheduled download not found")

// Enqueuer is where due entries are promoted to. The queue service
// satisfies it.
type Enqueuer interface {
	Enqueue(cfg model.DownloadConfig, title, thumbnail string) (model.QueueItem, error)
}

// ScheduleService holds downloads scheduled for a future time and promotes
// them into the queue once due. Entries are deleted on promotion so a scan
// can never fire one twice.
type ScheduleService struct {
	logger  *logger.Logger
	db      *gorm.DB
	queue   Enqueuer
	events  EventPublisher
	cron    *cron.Cron
	scanGap time.Duration

	mu      sync.Mutex
	entries map[string]*model.ScheduledDownload
}

// NewScheduleService creates the scheduler. db may be nil for tests.
func NewScheduleService(log *logger.Logger, db *gorm.DB, queue Enqueuer,
	events EventPublisher, scanInterval time.Duration) *ScheduleService {
	if scanInterval <= 0 {
		scanInterval = time.Minute
	}
	return &ScheduleService{
		logger:  log,
		db:      db,
		queue:   queue,
		events:  events,
		scanGap: scanInterval,
		entries: make(map[string]*model.ScheduledDownload),
	}
}

// Start loads persisted entries, runs one immediate scan for anything that
// came due while the process was down, then scans on the cron interval.
func (s *ScheduleService) Start() error {
	if err := s.load(); err != nil {
		return err
	}

	s.Scan()

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.scanGap)
	if _, err := s.cron.AddFunc(spec, s.Scan); err != nil {
		return fmt.Errorf("schedule scan registration: %w", err)
	}
	s.cron.Start()
	s.logger.Infof("time scheduler started, scanning every %s", s.scanGap)
	return nil
}

// Stop halts the scan loop and waits for a running scan to finish.
func (s *ScheduleService) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

func (s *ScheduleService) load() error {
	if s.db == nil {
		return nil
	}
	var rows []model.ScheduledDownload
	if err := s.db.Find(&rows).Error; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range rows {
		s.entries[rows[i].ID] = &rows[i]
	}
	return nil
}

// Add registers a download for a future time.
func (s *ScheduleService) Add(url, format, quality string, at time.Time) (model.ScheduledDownload, error) {
	entry := &model.ScheduledDownload{
		ID:            uuid.NewString(),
		URL:           url,
		Format:        format,
		Quality:       quality,
		ScheduledTime: at,
		Enabled:       true,
		CreatedAt:     nowFunc(),
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Create(entry).Error; err != nil {
			return model.ScheduledDownload{}, err
		}
	}
	return *entry, nil
}

// Remove deletes a scheduled entry without touching the queue.
func (s *ScheduleService) Remove(id string) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if !ok {
		return ErrScheduleNotFound
	}
	if s.db != nil {
		return s.db.Delete(&model.ScheduledDownload{}, "id = ?", id).Error
	}
	return nil
}

// SetEnabled toggles an entry. Disabled entries are skipped by scans but
// kept, so they fire when re-enabled past their time.
func (s *ScheduleService) SetEnabled(id string, enabled bool) (model.ScheduledDownload, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return model.ScheduledDownload{}, ErrScheduleNotFound
	}
	entry.Enabled = enabled
	out := *entry
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Model(&model.ScheduledDownload{}).
			Where("id = ?", id).Update("enabled", enabled).Error; err != nil {
			return model.ScheduledDownload{}, err
		}
	}
	return out, nil
}

// List returns all scheduled entries, soonest first.
func (s *ScheduleService) List() []model.ScheduledDownload {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ScheduledDownload, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out
}

// Scan promotes every enabled entry whose time has passed. Promotion
// deletes the entry, so each fires exactly once.
func (s *ScheduleService) Scan() {
	now := nowFunc()

	s.mu.Lock()
	var due []*model.ScheduledDownload
	for _, entry := range s.entries {
		if entry.Due(now) {
			due = append(due, entry)
		}
	}
	for _, entry := range due {
		delete(s.entries, entry.ID)
	}
	s.mu.Unlock()

	for _, entry := range due {
		cfg := model.DownloadConfig{
			URL:     entry.URL,
			Format:  entry.Format,
			Quality: entry.Quality,
		}
		if _, err := s.queue.Enqueue(cfg, "", ""); err != nil {
			s.logger.Errorf("scheduled download %s failed to enqueue: %v", entry.ID, err)
			continue
		}
		s.logger.Infof("scheduled download promoted: %s", entry.URL)
		if s.db != nil {
			if err := s.db.Delete(&model.ScheduledDownload{}, "id = ?", entry.ID).Error; err != nil {
				s.logger.Errorf("scheduled download %s delete failed: %v", entry.ID, err)
			}
		}
		if s.events != nil {
			s.events.Publish("schedule-fired", map[string]any{
				"id":  entry.ID,
				"url": entry.URL,
			})
		}
	}
}
