package consumer

import (
	"context"
	"encoding/json"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type CheckinHandler interface {
	HandleCheckin(ctx context.Context, ev service.CheckinEvent) (bool, error)
}

type CheckinConsumer struct {
	handler CheckinHandler
	logger  *logrus.Logger
}

func NewCheckinConsumer(handler CheckinHandler, logger *logrus.Logger) *CheckinConsumer {
	return &CheckinConsumer{handler: handler, logger: logger}
}

func (cc *CheckinConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			cc.handleMessage(ctx, msg)
		}
		cc.logger.WithField("component", "checkin_consumer").Info("channel closed, stopping consumer")
	}()
}

func (cc *CheckinConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	log := cc.logger.WithField("component", "checkin_consumer")

	var in dto.CheckinMessage
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		log.WithError(err).Error("failed to unmarshal check-in")
		msg.Nack(false, false)
		return
	}

	ev := service.CheckinEvent{EventID: in.EventID, PositionID: in.PositionID, ListName: in.ListName}
	if _, err := cc.handler.HandleCheckin(ctx, ev); err != nil {
		log.WithError(err).WithField("position", in.PositionID).Error("failed to handle check-in, requeueing")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
