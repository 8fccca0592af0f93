package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository is the per-event key/value store.
type SettingsRepository interface {
	Get(ctx context.Context, eventID uint) (map[string]string, error)
	Set(ctx context.Context, eventID uint, values map[string]string) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, eventID uint) (map[string]string, error) {
	var rows []models.EventSetting
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&rows).Error; err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

func (r *settingsRepository) Set(ctx context.Context, eventID uint, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]models.EventSetting, 0, len(values))
	for k, v := range values {
		rows = append(rows, models.EventSetting{EventID: eventID, Key: k, Value: v})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
}
