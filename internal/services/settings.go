package services

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
)

// SettingService is a read-through cache over the system_settings table.
// Not a systems-level cache: a memoization map keyed by setting name,
// invalidated on write.
type SettingService struct {
	DB *gorm.DB

	mu    sync.Mutex
	cache map[string]string
}

func NewSettingService(db *gorm.DB) *SettingService {
	return &SettingService{DB: db, cache: make(map[string]string)}
}

// Get returns the setting value, serving repeated reads from memory.
// Missing keys resolve to def.
func (s *SettingService) Get(key, def string) string {
	s.mu.Lock()
	if v, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()

	var row models.SystemSetting
	err := s.DB.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def
	}
	if err != nil {
		return def
	}
	s.mu.Lock()
	s.cache[key] = row.Value
	s.mu.Unlock()
	return row.Value
}

// Set upserts the setting and invalidates the cached entry.
func (s *SettingService) Set(key, value string) error {
	var row models.SystemSetting
	err := s.DB.Where("key = ?", key).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = s.DB.Create(&models.SystemSetting{Key: key, Value: value}).Error
	case err == nil:
		err = s.DB.Model(&row).Update("value", value).Error
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}
