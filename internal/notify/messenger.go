package notify

import (
	"context"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/rabbitmq"
)

// Messenger hands mail and SMS to the notification workers.
type Messenger struct {
	pub Publisher
}

func NewMessenger(pub Publisher) *Messenger {
	return &Messenger{pub: pub}
}

func (m *Messenger) SendMail(ctx context.Context, msg service.MailMessage) error {
	return m.pub.Publish(ctx, rabbitmq.NotificationExchange, rabbitmq.MailRoutingKey, msg)
}

func (m *Messenger) SendSMS(ctx context.Context, msg service.SMSMessage) error {
	return m.pub.Publish(ctx, rabbitmq.NotificationExchange, rabbitmq.SMSRoutingKey, msg)
}
