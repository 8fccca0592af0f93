package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemConfigRepository interface {
	FindByItem(ctx context.Context, itemID uint) (*models.ItemConfig, error)
	ListByEvent(ctx context.Context, eventID uint) ([]models.ItemConfig, error)
	// Save inserts cfg or replaces the existing config of the same item.
	Save(ctx context.Context, cfg *models.ItemConfig) error
	DeleteByItem(ctx context.Context, itemID uint) error
}

type itemConfigRepository struct {
	db *gorm.DB
}

func NewItemConfigRepository(db *gorm.DB) ItemConfigRepository {
	return &itemConfigRepository{db: db}
}

func (r *itemConfigRepository) FindByItem(ctx context.Context, itemID uint) (*models.ItemConfig, error) {
	var cfg models.ItemConfig
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *itemConfigRepository) ListByEvent(ctx context.Context, eventID uint) ([]models.ItemConfig, error) {
	var list []models.ItemConfig
	err := r.db.WithContext(ctx).
		Joins("JOIN items ON items.id = item_configs.item_id").
		Where("items.event_id = ?", eventID).
		Order("item_configs.id ASC").
		Find(&list).Error
	return list, err
}

func (r *itemConfigRepository) Save(ctx context.Context, cfg *models.ItemConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"days", "max_days", "target_event_id", "second_item_id", "updated_at"}),
	}).Create(cfg).Error
}

func (r *itemConfigRepository) DeleteByItem(ctx context.Context, itemID uint) error {
	return r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&models.ItemConfig{}).Error
}
