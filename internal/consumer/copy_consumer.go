package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type ConfigCopier interface {
	CopyForItem(ctx context.Context, sourceItemID, targetItemID uint) error
	CopyForEvent(ctx context.Context, sourceEventID uint, itemMap map[uint]uint) error
}

// CopyConsumer carries product configurations over to cloned products and events.
type CopyConsumer struct {
	copier ConfigCopier
	logger *logrus.Logger
}

func NewCopyConsumer(copier ConfigCopier, logger *logrus.Logger) *CopyConsumer {
	return &CopyConsumer{copier: copier, logger: logger}
}

func (cc *CopyConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			cc.handleMessage(ctx, msg)
		}
		cc.logger.WithField("component", "copy_consumer").Info("channel closed, stopping consumer")
	}()
}

func (cc *CopyConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	log := cc.logger.WithFields(logrus.Fields{"component": "copy_consumer", "routing_key": msg.RoutingKey})

	copyFn, err := cc.decode(msg)
	if err != nil {
		log.WithError(err).Error("dropping copy message")
		msg.Nack(false, false)
		return
	}
	if err := copyFn(ctx); err != nil {
		log.WithError(err).Error("failed to copy configuration, requeueing")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

func (cc *CopyConsumer) decode(msg amqp.Delivery) (func(ctx context.Context) error, error) {
	switch msg.RoutingKey {
	case rabbitmq.ItemCopiedKey:
		var in dto.ItemCopiedMessage
		if err := json.Unmarshal(msg.Body, &in); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return cc.copier.CopyForItem(ctx, in.SourceItemID, in.TargetItemID)
		}, nil
	case rabbitmq.EventCopiedKey:
		var in dto.EventCopiedMessage
		if err := json.Unmarshal(msg.Body, &in); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return cc.copier.CopyForEvent(ctx, in.SourceEventID, in.ItemMap)
		}, nil
	}
	return nil, fmt.Errorf("unexpected routing key %q", msg.RoutingKey)
}
