package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error)
}

type eventRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewEventRepository(db *gorm.DB, lockTimeout time.Duration) EventRepository {
	return &eventRepository{db: db, lockTimeout: lockTimeout}
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByIDForUpdate acquires a row-level lock on the event within the given transaction.
// Waiting longer than the lock timeout yields ErrLockTimeout.
func (r *eventRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error) {
	if r.lockTimeout > 0 {
		// SET does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if err := tx.WithContext(ctx).Exec(stmt).Error; err != nil {
			return nil, err
		}
	}

	var event models.Event
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, id).Error
	if err != nil {
		if isLockTimeout(err) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	return &event, nil
}
