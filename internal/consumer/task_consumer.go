package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/metrics"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type Scheduler interface {
	Run(ctx context.Context, eventID, positionID uint) (*service.Result, error)
	GiveUp(ctx context.Context, eventID, positionID uint) (*service.Result, error)
}

type Retrier interface {
	Retry(ctx context.Context, task dto.ScheduleTask, delay time.Duration) error
}

type TaskConsumer struct {
	scheduler  Scheduler
	retrier    Retrier
	maxRetries int
	retryDelay time.Duration
	logger     *logrus.Logger
}

func NewTaskConsumer(scheduler Scheduler, retrier Retrier, maxRetries int, retryDelay time.Duration, logger *logrus.Logger) *TaskConsumer {
	return &TaskConsumer{
		scheduler:  scheduler,
		retrier:    retrier,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Start handles deliveries until msgs is closed.
func (tc *TaskConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			tc.handleMessage(ctx, msg)
		}
		tc.logger.WithField("component", "task_consumer").Info("channel closed, stopping consumer")
	}()
}

func (tc *TaskConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	log := tc.logger.WithField("component", "task_consumer")

	var task dto.ScheduleTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		log.WithError(err).Error("failed to unmarshal task")
		metrics.IncTask("malformed")
		msg.Nack(false, false)
		return
	}
	log = log.WithFields(logrus.Fields{"event": task.EventID, "position": task.PositionID, "attempt": task.Attempt})

	res, err := tc.scheduler.Run(ctx, task.EventID, task.PositionID)
	switch {
	case err == nil:
		log.WithField("state", res.State).Info("scheduling run finished")
		metrics.IncTask("done")
		msg.Ack(false)

	case errors.Is(err, service.ErrLockTimeout):
		tc.handleLockTimeout(ctx, log, msg, task)

	case errors.Is(err, service.ErrPositionNotFound), errors.Is(err, service.ErrEventNotFound):
		log.WithError(err).Warn("dropping task")
		metrics.IncTask("dropped")
		msg.Ack(false)

	default:
		log.WithError(err).Error("scheduling run failed, requeueing")
		metrics.IncTask("requeued")
		msg.Nack(false, true)
	}
}

func (tc *TaskConsumer) handleLockTimeout(ctx context.Context, log *logrus.Entry, msg amqp.Delivery, task dto.ScheduleTask) {
	if task.Attempt >= tc.maxRetries {
		if _, err := tc.scheduler.GiveUp(ctx, task.EventID, task.PositionID); err != nil {
			log.WithError(err).Error("failed to record retry exhaustion")
		}
		metrics.IncTask("gave_up")
		msg.Ack(false)
		return
	}

	next := task
	next.Attempt++
	if err := tc.retrier.Retry(ctx, next, tc.retryDelay); err != nil {
		log.WithError(err).Error("failed to schedule retry, requeueing")
		metrics.IncTask("requeued")
		msg.Nack(false, true)
		return
	}
	log.WithField("delay", tc.retryDelay).Info("event locked, retry scheduled")
	metrics.IncTask("retried")
	msg.Ack(false)
}
