package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/metrics"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// State of a scheduling run.
type State string

const (
	StateStart         State = "START"
	StateLookupConfig  State = "LOOKUP_CONFIG"
	StateCheckLink     State = "CHECK_EXISTING_LINK"
	StateResolveTarget State = "RESOLVE_TARGET"
	StateSearchAndBook State = "SEARCH_AND_BOOK"
	StateRetry         State = "RETRY"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

const SourceAutosched = "autosched"

// Result is the outcome of one run. Order is set only when this run booked.
type Result struct {
	State  State
	Order  *models.Order
	Reason string
}

type Orchestrator struct {
	events   repository.EventRepository
	orders   repository.OrderRepository
	configs  repository.ItemConfigRepository
	links    repository.LinkRepository
	resolver Resolver
	search   *SlotSearch
	booker   Booker
	logger   *logrus.Logger
}

func NewOrchestrator(
	events repository.EventRepository,
	orders repository.OrderRepository,
	configs repository.ItemConfigRepository,
	links repository.LinkRepository,
	resolver Resolver,
	search *SlotSearch,
	booker Booker,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		events:   events,
		orders:   orders,
		configs:  configs,
		links:    links,
		resolver: resolver,
		search:   search,
		booker:   booker,
		logger:   logger,
	}
}

// Run schedules the follow-up of one origin position. A lock timeout ends the
// run in StateRetry with ErrLockTimeout; the caller decides whether to retry.
func (o *Orchestrator) Run(ctx context.Context, eventID, positionID uint) (*Result, error) {
	ctx, span := otel.Tracer("autosched").Start(ctx, "Orchestrator.Run",
		trace.WithAttributes(attribute.Int64("autosched.position", int64(positionID))))
	defer span.End()

	res, err := o.run(ctx, eventID, positionID)
	switch {
	case errors.Is(err, ErrLockTimeout):
		metrics.IncRun("retry")
	case err != nil:
		metrics.IncRun("error")
		span.RecordError(err)
	default:
		metrics.IncRun(string(res.State))
	}
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, eventID, positionID uint) (*Result, error) {
	log := o.logger.WithFields(logrus.Fields{"component": "orchestrator", "event": eventID, "position": positionID})
	state := StateStart
	done := func(reason string) *Result {
		log.WithField("from", state).Info(reason)
		return &Result{State: StateDone, Reason: reason}
	}

	// LOOKUP_CONFIG
	state = StateLookupConfig
	event, err := o.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	origin, err := o.orders.FindPosition(ctx, positionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	if origin.Order == nil || origin.Order.EventID != event.ID {
		return nil, ErrPositionNotFound
	}
	log = log.WithField("order", origin.Order.Code)

	cfg, err := o.configs.FindByItem(ctx, origin.ItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return done("scheduling not configured for product"), nil
	}
	if err != nil {
		return nil, err
	}
	if origin.SubEvent == nil {
		return done("origin position has no occurrence"), nil
	}

	// CHECK_EXISTING_LINK
	state = StateCheckLink
	linked, err := o.links.ExistsForPosition(ctx, nil, origin.ID)
	if err != nil {
		return nil, err
	}
	if linked {
		return done("follow-up already booked"), nil
	}

	// RESOLVE_TARGET
	state = StateResolveTarget
	earliest := EarliestDate(origin.SubEvent.DateFrom, cfg.Days, event.Location())
	target := event
	if cfg.TargetEventID != nil && *cfg.TargetEventID != event.ID {
		target, err = o.events.FindByID(ctx, *cfg.TargetEventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEventNotFound
			}
			return nil, err
		}
	}
	item, variation, err := o.resolver.Resolve(ctx, origin, target, cfg.SecondItemID)
	if err != nil {
		if isResolutionError(err) {
			log.WithError(err).Info("target product could not be resolved")
			return &Result{State: StateFailed, Reason: err.Error()}, nil
		}
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"earliest": earliest,
		"target":   target.Slug,
		"item":     item.ID,
	}).Info("searching for follow-up slot")

	// SEARCH_AND_BOOK
	state = StateSearchAndBook
	var (
		booked *models.Order
		raced  bool
	)
	query := SearchQuery{EventID: target.ID, Item: item, Variation: variation, Earliest: earliest}
	found, err := o.search.Run(ctx, query, func(ctx context.Context, candidate *models.SubEvent) (bool, error) {
		order, err := o.booker.Book(ctx, BookingRequest{
			Origin:        origin,
			Item:          item,
			Variation:     variation,
			SubEvent:      candidate,
			OriginalEvent: event,
			Source:        SourceAutosched,
		})
		if errors.Is(err, ErrAlreadyScheduled) {
			raced = true
			return true, nil
		}
		if err != nil {
			return false, err
		}
		booked = order
		return order != nil, nil
	})
	if err != nil {
		if errors.Is(err, ErrLockTimeout) {
			log.Info("event lock timed out")
			return &Result{State: StateRetry, Reason: err.Error()}, err
		}
		return nil, err
	}
	if raced {
		return done("follow-up booked concurrently"), nil
	}
	if found.Booked != nil {
		log.WithField("child_order", booked.Code).Info("follow-up scheduled")
		return &Result{State: StateDone, Order: booked}, nil
	}

	data := map[string]any{"reason": ReasonNoSlot, "position": origin.ID}
	if found.Last != nil {
		data["last_looked_at"] = found.Last.ID
	}
	if err := o.orders.LogAction(ctx, nil, origin.OrderID, ActionFailed, data); err != nil {
		return nil, fmt.Errorf("log search failure: %w", err)
	}
	log.WithField("examined", found.Examined).Info("no available time slot found")
	return &Result{State: StateFailed, Reason: ReasonNoSlot}, nil
}

// GiveUp ends a run whose lock-timeout retries are exhausted.
func (o *Orchestrator) GiveUp(ctx context.Context, eventID, positionID uint) (*Result, error) {
	origin, err := o.orders.FindPosition(ctx, positionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	data := map[string]any{"reason": ReasonLockTimeout, "position": origin.ID}
	if err := o.orders.LogAction(ctx, nil, origin.OrderID, ActionFailed, data); err != nil {
		return nil, fmt.Errorf("log retry exhaustion: %w", err)
	}
	o.logger.WithFields(logrus.Fields{
		"component": "orchestrator",
		"event":     eventID,
		"position":  positionID,
	}).Warn("retries exhausted, scheduling failed")
	metrics.IncRun(string(StateFailed))
	return &Result{State: StateFailed, Reason: ReasonLockTimeout}, nil
}

// EarliestDate is the origin's local calendar date plus days, at the origin's local time of day.
func EarliestDate(origin time.Time, days int, loc *time.Location) time.Time {
	local := origin.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+days,
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
}

func isResolutionError(err error) bool {
	return errors.Is(err, ErrNoProduct) || errors.Is(err, ErrNoVariation) || errors.Is(err, ErrPreferredItemEvent)
}
