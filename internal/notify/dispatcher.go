package notify

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/rabbitmq"
)

// Dispatcher enqueues scheduling tasks.
type Dispatcher struct {
	pub Publisher
}

func NewDispatcher(pub Publisher) *Dispatcher {
	return &Dispatcher{pub: pub}
}

func (d *Dispatcher) Dispatch(ctx context.Context, eventID, positionID uint) error {
	task := dto.ScheduleTask{EventID: eventID, PositionID: positionID}
	return d.pub.Publish(ctx, rabbitmq.TaskExchange, rabbitmq.TaskRoutingKey, task)
}

// Retry re-enqueues task after delay via the retry queue.
func (d *Dispatcher) Retry(ctx context.Context, task dto.ScheduleTask, delay time.Duration) error {
	return d.pub.PublishDelayed(ctx, rabbitmq.RetryQueue, task, delay)
}
