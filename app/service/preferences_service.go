package service

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"downpour/app/logger"
	"downpour/app/model"
)

// PreferencesService persists the single user preferences row.
type PreferencesService struct {
	logger *logger.Logger
	db     *gorm.DB
	mu     sync.Mutex
}

// NewPreferencesService creates the store. db may be nil, in which case
// defaults are always returned and saves are dropped.
func NewPreferencesService(log *logger.Logger, db *gorm.DB) *PreferencesService {
	return &PreferencesService{logger: log, db: db}
}

// Get returns the saved preferences, falling back to defaults when no row
// exists yet.
func (s *PreferencesService) Get() (model.Preferences, error) {
	if s.db == nil {
		return model.DefaultPreferences(), nil
	}

	var prefs model.Preferences
	err := s.db.First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultPreferences(), nil
	}
	if err != nil {
		return model.Preferences{}, err
	}
	return prefs, nil
}

// Save replaces the preferences row.
func (s *PreferencesService) Save(prefs model.Preferences) (model.Preferences, error) {
	if s.db == nil {
		return prefs, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing model.Preferences
	err := s.db.First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		prefs.ID = 0
		if err := s.db.Create(&prefs).Error; err != nil {
			return model.Preferences{}, err
		}
	case err != nil:
		return model.Preferences{}, err
	default:
		prefs.ID = existing.ID
		if err := s.db.Save(&prefs).Error; err != nil {
			return model.Preferences{}, err
		}
	}
	return prefs, nil
}
