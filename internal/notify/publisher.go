// Package notify publishes the service's outbound messages to RabbitMQ.
package notify

import (
	"context"
	"time"
)

// Publisher is the subset of rabbitmq.Publisher used here.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
	PublishDelayed(ctx context.Context, queue string, payload any, delay time.Duration) error
}
