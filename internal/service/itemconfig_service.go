package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"gorm.io/gorm"
)

// ItemConfigInput is a submitted product configuration. A nil Days removes the configuration.
type ItemConfigInput struct {
	Days          *int  `json:"days"`
	MaxDays       *int  `json:"max_days"`
	TargetEventID *uint `json:"event"`
	SecondItemID  *uint `json:"second_item"`
}

type ItemConfigService interface {
	Get(ctx context.Context, eventID, itemID uint) (*models.ItemConfig, error)
	// Save returns nil and deletes the configuration when in.Days is nil.
	Save(ctx context.Context, eventID, itemID uint, in ItemConfigInput) (*models.ItemConfig, error)
	Delete(ctx context.Context, eventID, itemID uint) error
	// CopyForItem copies the configuration of source onto target, if there is one.
	CopyForItem(ctx context.Context, sourceItemID, targetItemID uint) error
	// CopyForEvent copies all configurations of an event, mapping item ids with itemMap.
	CopyForEvent(ctx context.Context, sourceEventID uint, itemMap map[uint]uint) error
}

type itemConfigService struct {
	configs repository.ItemConfigRepository
	events  repository.EventRepository
	catalog repository.CatalogRepository
}

func NewItemConfigService(configs repository.ItemConfigRepository, events repository.EventRepository, catalog repository.CatalogRepository) ItemConfigService {
	return &itemConfigService{configs: configs, events: events, catalog: catalog}
}

func (s *itemConfigService) item(ctx context.Context, eventID, itemID uint) (*models.Item, error) {
	item, err := s.catalog.FindItem(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && item.EventID != eventID) {
		return nil, ErrItemNotFound
	}
	return item, err
}

func (s *itemConfigService) Get(ctx context.Context, eventID, itemID uint) (*models.ItemConfig, error) {
	if _, err := s.item(ctx, eventID, itemID); err != nil {
		return nil, err
	}
	cfg, err := s.configs.FindByItem(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	return cfg, err
}

func (s *itemConfigService) Save(ctx context.Context, eventID, itemID uint, in ItemConfigInput) (*models.ItemConfig, error) {
	item, err := s.item(ctx, eventID, itemID)
	if err != nil {
		return nil, err
	}
	if in.Days == nil {
		return nil, s.configs.DeleteByItem(ctx, itemID)
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.HasSubEvents {
		return nil, invalid("days", "This can only be used on event series.")
	}
	if *in.Days < 0 {
		return nil, invalid("days", "must not be negative")
	}
	if in.MaxDays != nil && *in.MaxDays < *in.Days {
		return nil, invalid("max_days", "must not be smaller than days")
	}

	target := event
	if in.TargetEventID != nil && *in.TargetEventID != eventID {
		target, err = s.events.FindByID(ctx, *in.TargetEventID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("event", "unknown event")
		}
		if err != nil {
			return nil, err
		}
		if !target.HasSubEvents {
			return nil, invalid("event", "The target must be an event series.")
		}
		if in.SecondItemID == nil {
			if err := s.requireNameMatch(ctx, item, target); err != nil {
				return nil, err
			}
		}
	}

	if in.SecondItemID != nil {
		second, err := s.catalog.FindItem(ctx, *in.SecondItemID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && second.EventID != target.ID) {
			return nil, invalid("second_item", "The product must belong to the target event.")
		}
		if err != nil {
			return nil, err
		}
	}

	cfg := &models.ItemConfig{
		ItemID:        itemID,
		Days:          *in.Days,
		MaxDays:       in.MaxDays,
		TargetEventID: in.TargetEventID,
		SecondItemID:  in.SecondItemID,
	}
	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requireNameMatch mirrors the resolver: exactly one product of target shares item's stable name.
func (s *itemConfigService) requireNameMatch(ctx context.Context, item *models.Item, target *models.Event) error {
	items, err := s.catalog.ItemsByEvent(ctx, target.ID)
	if err != nil {
		return err
	}
	n := 0
	for i := range items {
		if items[i].StableName() == item.StableName() {
			n++
		}
	}
	if n != 1 {
		return invalid("event", fmt.Sprintf("The selected event must contain exactly one product named %q.", item.StableName()))
	}
	return nil
}

func (s *itemConfigService) Delete(ctx context.Context, eventID, itemID uint) error {
	if _, err := s.item(ctx, eventID, itemID); err != nil {
		return err
	}
	return s.configs.DeleteByItem(ctx, itemID)
}

func (s *itemConfigService) CopyForItem(ctx context.Context, sourceItemID, targetItemID uint) error {
	cfg, err := s.configs.FindByItem(ctx, sourceItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.configs.Save(ctx, cloneConfig(cfg, targetItemID))
}

func (s *itemConfigService) CopyForEvent(ctx context.Context, sourceEventID uint, itemMap map[uint]uint) error {
	list, err := s.configs.ListByEvent(ctx, sourceEventID)
	if err != nil {
		return err
	}
	for i := range list {
		target, ok := itemMap[list[i].ItemID]
		if !ok {
			continue
		}
		if err := s.configs.Save(ctx, cloneConfig(&list[i], target)); err != nil {
			return err
		}
	}
	return nil
}

func cloneConfig(cfg *models.ItemConfig, itemID uint) *models.ItemConfig {
	return &models.ItemConfig{
		ItemID:        itemID,
		Days:          cfg.Days,
		MaxDays:       cfg.MaxDays,
		TargetEventID: cfg.TargetEventID,
		SecondItemID:  cfg.SecondItemID,
	}
}
