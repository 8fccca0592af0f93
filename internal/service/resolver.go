package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Resolver maps the product of an origin position onto a product of the target event.
type Resolver interface {
	// Resolve returns the target product and variation. A failure is logged on the origin
	// order and returned as ErrNoProduct, ErrNoVariation or ErrPreferredItemEvent.
	Resolve(ctx context.Context, origin *models.OrderPosition, target *models.Event, preferredItemID *uint) (*models.Item, *models.ItemVariation, error)
	// Match is Resolve without the audit entry.
	Match(ctx context.Context, origin *models.OrderPosition, target *models.Event, preferredItemID *uint) (*models.Item, *models.ItemVariation, error)
}

// nameResolver joins products across events by their stable name.
type nameResolver struct {
	catalog repository.CatalogRepository
	orders  repository.OrderRepository
	logger  *logrus.Logger
}

func NewResolver(catalog repository.CatalogRepository, orders repository.OrderRepository, logger *logrus.Logger) Resolver {
	return &nameResolver{catalog: catalog, orders: orders, logger: logger}
}

func (r *nameResolver) Resolve(ctx context.Context, origin *models.OrderPosition, target *models.Event, preferredItemID *uint) (*models.Item, *models.ItemVariation, error) {
	item, variation, err := r.Match(ctx, origin, target, preferredItemID)
	if isResolutionError(err) {
		return nil, nil, r.fail(ctx, origin, err)
	}
	return item, variation, err
}

func (r *nameResolver) Match(ctx context.Context, origin *models.OrderPosition, target *models.Event, preferredItemID *uint) (*models.Item, *models.ItemVariation, error) {
	var item *models.Item

	switch {
	case preferredItemID != nil:
		preferred, err := r.catalog.FindItem(ctx, *preferredItemID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		if preferred == nil || preferred.EventID != target.ID {
			return nil, nil, ErrPreferredItemEvent
		}
		item = preferred

	case origin.Order.EventID == target.ID:
		return origin.Item, origin.Variation, nil

	default:
		items, err := r.catalog.ItemsByEvent(ctx, target.ID)
		if err != nil {
			return nil, nil, err
		}
		name := origin.Item.StableName()
		var matches []*models.Item
		for i := range items {
			if items[i].StableName() == name {
				matches = append(matches, &items[i])
			}
		}
		if len(matches) != 1 {
			r.logger.WithFields(logrus.Fields{
				"component": "resolver",
				"position":  origin.ID,
				"target":    target.Slug,
				"matches":   len(matches),
			}).Info("product lookup by name is not unique")
			return nil, nil, ErrNoProduct
		}
		item = matches[0]
	}

	if origin.Variation == nil && len(item.Variations) == 0 {
		return item, nil, nil
	}

	// An origin without variation never matches a target variation.
	var found []*models.ItemVariation
	if origin.Variation != nil {
		for i := range item.Variations {
			if item.Variations[i].Value == origin.Variation.Value {
				found = append(found, &item.Variations[i])
			}
		}
	}
	if len(found) != 1 {
		r.logger.WithFields(logrus.Fields{
			"component": "resolver",
			"position":  origin.ID,
			"item":      item.ID,
			"matches":   len(found),
		}).Info("variation lookup by value is not unique")
		return nil, nil, ErrNoVariation
	}
	return item, found[0], nil
}

func (r *nameResolver) fail(ctx context.Context, origin *models.OrderPosition, cause error) error {
	data := map[string]any{"reason": failureReason(cause), "position": origin.ID}
	if err := r.orders.LogAction(ctx, nil, origin.OrderID, ActionFailed, data); err != nil {
		return fmt.Errorf("log resolution failure: %w", err)
	}
	return cause
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrPreferredItemEvent):
		return ReasonPreferredItemEvent
	case errors.Is(err, ErrNoVariation):
		return ReasonNoVariation
	default:
		return ReasonNoProduct
	}
}
