package services

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sweeps-settlement-system/config"
	"sweeps-settlement-system/models"
)

// SettingsService layers persisted admin overrides over the configured defaults.
type SettingsService struct {
	DB       *gorm.DB
	Defaults config.Settings
}

func NewSettingsService(db *gorm.DB, defaults config.Settings) *SettingsService {
	return &SettingsService{DB: db, Defaults: defaults}
}

// Current returns the settings in force right now.
func (s *SettingsService) Current(ctx context.Context) (config.Settings, error) {
	var rows []models.SiteSetting
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return s.Defaults, classify("load settings", err)
	}
	out := s.Defaults
	for _, r := range rows {
		if err := out.Set(r.Key, r.Value); err != nil {
			// only Update writes rows, so this means someone edited the table by hand
			log.WithError(err).WithField("key", r.Key).Warn("ignoring stored setting")
		}
	}
	return out, nil
}

// Update validates and persists one override. Unknown keys are rejected and
// never stored.
func (s *SettingsService) Update(ctx context.Context, adminID, key, value string) (config.Settings, error) {
	candidate := s.Defaults
	if err := candidate.Set(key, value); err != nil {
		var unknown *config.UnknownSettingError
		if errors.As(err, &unknown) {
			return candidate, validationf("unknown setting %q", key)
		}
		return candidate, &ValidationError{Msg: err.Error()}
	}

	row := models.SiteSetting{Key: key, Value: value, UpdatedBy: adminID}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return candidate, classify("update setting", err)
	}
	log.WithFields(log.Fields{"key": key, "value": value, "admin_id": adminID}).Info("⚙️ setting updated")
	return s.Current(ctx)
}
