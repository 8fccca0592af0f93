package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/gorm"
)

// LinkRepository records which origin position produced which follow-up position.
type LinkRepository interface {
	// ExistsForPosition is true when the position is on either side of a link.
	ExistsForPosition(ctx context.Context, tx *gorm.DB, positionID uint) (bool, error)
	FindByBase(ctx context.Context, positionID uint) (*models.LinkedOrderPosition, error)
	Create(ctx context.Context, tx *gorm.DB, link *models.LinkedOrderPosition) error
}

type linkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) ExistsForPosition(ctx context.Context, tx *gorm.DB, positionID uint) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).
		Model(&models.LinkedOrderPosition{}).
		Where("base_position_id = ? OR child_position_id = ?", positionID, positionID).
		Count(&count).Error
	return count > 0, err
}

func (r *linkRepository) FindByBase(ctx context.Context, positionID uint) (*models.LinkedOrderPosition, error) {
	var link models.LinkedOrderPosition
	err := r.db.WithContext(ctx).
		Preload("ChildPosition.Order").
		Preload("ChildPosition.SubEvent").
		Where("base_position_id = ?", positionID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Create maps a unique violation on either side to ErrDuplicateLink.
func (r *linkRepository) Create(ctx context.Context, tx *gorm.DB, link *models.LinkedOrderPosition) error {
	if err := tx.WithContext(ctx).Create(link).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateLink
		}
		return err
	}
	return nil
}
