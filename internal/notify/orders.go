package notify

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/rabbitmq"
)

// OrderEvents publishes order lifecycle events on the platform exchange.
type OrderEvents struct {
	pub Publisher
}

func NewOrderEvents(pub Publisher) *OrderEvents {
	return &OrderEvents{pub: pub}
}

func (o *OrderEvents) OrderPlaced(ctx context.Context, order *models.Order) error {
	return o.pub.Publish(ctx, rabbitmq.PlatformExchange, rabbitmq.OrderPlacedKey, orderEvent(order))
}

func (o *OrderEvents) OrderPaid(ctx context.Context, order *models.Order) error {
	return o.pub.Publish(ctx, rabbitmq.PlatformExchange, rabbitmq.OrderPaidKey, orderEvent(order))
}

func orderEvent(order *models.Order) dto.OrderEventMessage {
	return dto.OrderEventMessage{
		EventID:    order.EventID,
		OrderID:    order.ID,
		Code:       order.Code,
		Status:     string(order.Status),
		Source:     "autosched",
		OccurredAt: time.Now().UTC(),
	}
}
