package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/gorm"
)

// CatalogRepository reads products and questions of an event.
type CatalogRepository interface {
	ItemsByEvent(ctx context.Context, eventID uint) ([]models.Item, error)
	FindItem(ctx context.Context, id uint) (*models.Item, error)
	QuestionByIdentifier(ctx context.Context, tx *gorm.DB, eventID uint, identifier string) (*models.Question, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ItemsByEvent(ctx context.Context, eventID uint) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *catalogRepository) FindItem(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Preload("Variations").First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *catalogRepository) QuestionByIdentifier(ctx context.Context, tx *gorm.DB, eventID uint, identifier string) (*models.Question, error) {
	var q models.Question
	err := conn(r.db, tx).WithContext(ctx).
		Preload("Options").
		Where("event_id = ? AND identifier = ?", eventID, identifier).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}
