package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/gorm"
)

type SubEventRepository interface {
	FindByID(ctx context.Context, id uint) (*models.SubEvent, error)
	// ListFrom returns active occurrences starting at or after from, ordered by (date_from, id).
	ListFrom(ctx context.Context, eventID uint, from time.Time, limit int) ([]models.SubEvent, error)
	// ListBetween is ListFrom bounded above by before (exclusive). A zero before is unbounded.
	ListBetween(ctx context.Context, eventID uint, from, before time.Time) ([]models.SubEvent, error)
}

type subEventRepository struct {
	db *gorm.DB
}

func NewSubEventRepository(db *gorm.DB) SubEventRepository {
	return &subEventRepository{db: db}
}

func (r *subEventRepository) FindByID(ctx context.Context, id uint) (*models.SubEvent, error) {
	var se models.SubEvent
	if err := r.db.WithContext(ctx).First(&se, id).Error; err != nil {
		return nil, err
	}
	return &se, nil
}

func (r *subEventRepository) ListFrom(ctx context.Context, eventID uint, from time.Time, limit int) ([]models.SubEvent, error) {
	var list []models.SubEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND active AND date_from >= ?", eventID, from).
		Order("date_from ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *subEventRepository) ListBetween(ctx context.Context, eventID uint, from, before time.Time) ([]models.SubEvent, error) {
	var list []models.SubEvent
	q := r.db.WithContext(ctx).Where("event_id = ? AND active AND date_from >= ?", eventID, from)
	if !before.IsZero() {
		q = q.Where("date_from < ?", before)
	}
	err := q.Order("date_from ASC, id ASC").Find(&list).Error
	return list, err
}
