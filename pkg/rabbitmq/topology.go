package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeKind = "topic"

	// Scheduling tasks.
	TaskExchange   = "autosched"
	TaskRoutingKey = "autosched.schedule"
	TaskQueue      = "autosched.tasks"
	RetryQueue     = "autosched.tasks.retry"

	// Platform events consumed and produced by the service.
	PlatformExchange  = "platform"
	CheckinRoutingKey = "checkin.created"
	CheckinQueue      = "autosched.checkins"
	ItemCopiedKey     = "item.copied"
	EventCopiedKey    = "event.copied"
	CopyQueue         = "autosched.copies"
	OrderPlacedKey    = "order.placed"
	OrderPaidKey      = "order.paid"

	// Outbound mail and SMS.
	NotificationExchange = "notifications"
	MailRoutingKey       = "mail.send"
	SMSRoutingKey        = "sms.send"
)

type Binding struct {
	Exchange   string
	RoutingKey string
}

// QueueSpec describes a durable queue and what it is bound to.
type QueueSpec struct {
	Name     string
	Bindings []Binding
	Args     amqp.Table
}

func TaskQueueSpec() QueueSpec {
	return QueueSpec{
		Name:     TaskQueue,
		Bindings: []Binding{{Exchange: TaskExchange, RoutingKey: TaskRoutingKey}},
	}
}

// RetryQueueSpec is unconsumed: messages wait out their per-message TTL and
// are dead-lettered back onto the task routing key.
func RetryQueueSpec() QueueSpec {
	return QueueSpec{
		Name: RetryQueue,
		Args: amqp.Table{
			"x-dead-letter-exchange":    TaskExchange,
			"x-dead-letter-routing-key": TaskRoutingKey,
		},
	}
}

func CheckinQueueSpec() QueueSpec {
	return QueueSpec{
		Name:     CheckinQueue,
		Bindings: []Binding{{Exchange: PlatformExchange, RoutingKey: CheckinRoutingKey}},
	}
}

// CopyQueueSpec receives product and event clones so configurations follow them.
func CopyQueueSpec() QueueSpec {
	return QueueSpec{
		Name: CopyQueue,
		Bindings: []Binding{
			{Exchange: PlatformExchange, RoutingKey: ItemCopiedKey},
			{Exchange: PlatformExchange, RoutingKey: EventCopiedKey},
		},
	}
}

func declareExchanges(ch *amqp.Channel, names ...string) error {
	for _, name := range names {
		if err := ch.ExchangeDeclare(name, ExchangeKind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq exchange declare %s: %w", name, err)
		}
	}
	return nil
}

func declareQueue(ch *amqp.Channel, spec QueueSpec) error {
	q, err := ch.QueueDeclare(spec.Name, true, false, false, false, spec.Args)
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare %s: %w", spec.Name, err)
	}
	for _, b := range spec.Bindings {
		if err := ch.QueueBind(q.Name, b.RoutingKey, b.Exchange, false, nil); err != nil {
			return fmt.Errorf("rabbitmq queue bind %s: %w", spec.Name, err)
		}
	}
	return nil
}
