package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderRepository interface {
	// FindPosition loads a position with its order, product, variation, occurrence and answers.
	FindPosition(ctx context.Context, id uint) (*models.OrderPosition, error)
	FindByCode(ctx context.Context, eventID uint, code string) (*models.Order, error)
	CodeExists(ctx context.Context, tx *gorm.DB, eventID uint, code string) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	CreatePosition(ctx context.Context, tx *gorm.DB, pos *models.OrderPosition) error
	CreateAnswer(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
	// LogAction appends an audit entry. A nil tx writes outside any transaction.
	LogAction(ctx context.Context, tx *gorm.DB, orderID uint, action string, data any) error
	LogEntries(ctx context.Context, orderID uint, actionPrefix string) ([]models.LogEntry, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindPosition(ctx context.Context, id uint) (*models.OrderPosition, error) {
	var pos models.OrderPosition
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Item.Variations").
		Preload("Variation").
		Preload("SubEvent").
		Preload("Answers.Question").
		Preload("Answers.Options").
		First(&pos, id).Error
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

func (r *orderRepository) FindByCode(ctx context.Context, eventID uint, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Positions", func(db *gorm.DB) *gorm.DB { return db.Order("position_id ASC") }).
		Preload("Positions.SubEvent").
		Where("event_id = ? AND code = ?", eventID, code).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) CodeExists(ctx context.Context, tx *gorm.DB, eventID uint, code string) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).
		Model(&models.Order{}).
		Where("event_id = ? AND code = ?", eventID, code).
		Count(&count).Error
	return count > 0, err
}

func (r *orderRepository) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return tx.WithContext(ctx).Omit("Positions").Create(order).Error
}

func (r *orderRepository) CreatePosition(ctx context.Context, tx *gorm.DB, pos *models.OrderPosition) error {
	return tx.WithContext(ctx).Omit("Answers").Create(pos).Error
}

func (r *orderRepository) CreateAnswer(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	return tx.WithContext(ctx).Omit("Options.*").Create(answer).Error
}

func (r *orderRepository) LogAction(ctx context.Context, tx *gorm.DB, orderID uint, action string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal log data: %w", err)
	}
	entry := &models.LogEntry{
		OrderID:    orderID,
		ActionType: action,
		Data:       datatypes.JSON(raw),
	}
	return conn(r.db, tx).WithContext(ctx).Create(entry).Error
}

func (r *orderRepository) LogEntries(ctx context.Context, orderID uint, actionPrefix string) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND action_type LIKE ?", orderID, actionPrefix+"%").
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
