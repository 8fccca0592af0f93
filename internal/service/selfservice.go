package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/jinzhu/now"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const SourceSelfService = "autosched.self_service"

// Kinds of self-service rejections.
var (
	ErrFeatureDisabled = errors.New("self-service scheduling is not enabled")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNotEligible     = errors.New("order is not eligible")
	ErrNoAvailability  = errors.New("no available slot")
)

const (
	msgNotFound       = "We were unable to find a valid ticket with this code, please try again."
	msgMultiple       = "Tickets with more than one position are not currently supported."
	msgNotApproved    = "Scheduling of a second appointment is not available for this ticket since it has not yet been approved or has been canceled."
	msgTooEarly       = "Please do not try to schedule a second appointment before your first appointment is over."
	msgNotConfigured  = "Scheduling of a second appointment is not available for this ticket."
	msgAlreadyBooked  = "A second appointment has already been scheduled for %s. The ticket has been sent to you via email to the address used for your first booking."
	msgNoSlots        = "Unfortunately, there is currently no available slot for a second appointment."
	msgSlotNotOffered = "The selected time slot is not available, please choose another one."
	msgBookingFailed  = "There was an error when booking your second dose, please try again."
)

// Layout of dates shown to attendees.
const displayLayout = "2006-01-02 15:04"

// Window is an inclusive range of local calendar dates.
type Window struct {
	Min time.Time
	Max time.Time
}

func (w Window) Empty() bool {
	return w.Max.Before(w.Min)
}

// Without a configured maximum the window closes one day after the first appointment.
const defaultMaxDays = 1

// ComputeWindow returns [max(first+days, today), first+maxDays] on calendar dates of loc.
func ComputeWindow(first, today time.Time, days int, maxDays *int, loc *time.Location) Window {
	firstDay := now.With(first.In(loc)).BeginningOfDay()
	todayDay := now.With(today.In(loc)).BeginningOfDay()

	w := Window{Min: firstDay.AddDate(0, 0, days)}
	if todayDay.After(w.Min) {
		w.Min = todayDay
	}
	last := defaultMaxDays
	if maxDays != nil {
		last = *maxDays
	}
	w.Max = firstDay.AddDate(0, 0, last)
	return w
}

// Eligibility is a verified origin ready for self-service booking.
type Eligibility struct {
	Event     *models.Event
	Order     *models.Order
	Origin    *models.OrderPosition
	Config    *models.ItemConfig
	Target    *models.Event
	Item      *models.Item
	Variation *models.ItemVariation
	Window    Window
	Slots     []models.SubEvent
	Settings  *Settings
}

// SelfService lets attendees pick their own follow-up slot. Orders are identified
// by code plus the order secret or the secret of its position.
type SelfService struct {
	events    repository.EventRepository
	orders    repository.OrderRepository
	configs   repository.ItemConfigRepository
	links     repository.LinkRepository
	subEvents repository.SubEventRepository
	quotas    repository.QuotaRepository
	settings  SettingsService
	resolver  Resolver
	booker    Booker
	clock     func() time.Time
	logger    *logrus.Logger
}

type SelfServiceDeps struct {
	Events    repository.EventRepository
	Orders    repository.OrderRepository
	Configs   repository.ItemConfigRepository
	Links     repository.LinkRepository
	SubEvents repository.SubEventRepository
	Quotas    repository.QuotaRepository
	Settings  SettingsService
	Resolver  Resolver
	Booker    Booker
	Clock     func() time.Time
	Logger    *logrus.Logger
}

func NewSelfService(d SelfServiceDeps) *SelfService {
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SelfService{
		events:    d.Events,
		orders:    d.Orders,
		configs:   d.Configs,
		links:     d.Links,
		subEvents: d.SubEvents,
		quotas:    d.Quotas,
		settings:  d.Settings,
		resolver:  d.Resolver,
		booker:    d.Booker,
		clock:     clock,
		logger:    d.Logger,
	}
}

// Lookup verifies code and secret and returns the order if it is a single-position order.
func (s *SelfService) Lookup(ctx context.Context, eventID uint, code, secret string) (*models.Order, error) {
	if _, _, err := s.enabled(ctx, eventID); err != nil {
		return nil, err
	}
	return s.lookup(ctx, eventID, code, secret)
}

// Options checks eligibility and lists the bookable occurrences in the window.
func (s *SelfService) Options(ctx context.Context, eventID uint, code, secret string) (*Eligibility, error) {
	el, err := s.eligibility(ctx, eventID, code, secret)
	if err != nil {
		return nil, err
	}
	if len(el.Slots) == 0 {
		return nil, userError(ErrNoAvailability, msgNoSlots)
	}
	return el, nil
}

// Book books the chosen occurrence through the same Booker as automatic scheduling.
func (s *SelfService) Book(ctx context.Context, eventID uint, code, secret string, subEventID uint) (*models.Order, error) {
	el, err := s.eligibility(ctx, eventID, code, secret)
	if err != nil {
		return nil, err
	}

	var chosen *models.SubEvent
	for i := range el.Slots {
		if el.Slots[i].ID == subEventID {
			chosen = &el.Slots[i]
		}
	}
	if chosen == nil {
		return nil, userError(ErrNoAvailability, msgSlotNotOffered)
	}

	order, err := s.booker.Book(ctx, BookingRequest{
		Origin:        el.Origin,
		Item:          el.Item,
		Variation:     el.Variation,
		SubEvent:      chosen,
		OriginalEvent: el.Event,
		Source:        SourceSelfService,
	})
	switch {
	case errors.Is(err, ErrAlreadyScheduled):
		return nil, s.alreadyScheduled(ctx, el.Origin, el.Event)
	case errors.Is(err, ErrLockTimeout):
		return nil, err
	case err != nil:
		return nil, err
	case order == nil:
		return nil, userError(ErrNoAvailability, msgBookingFailed)
	}

	s.logger.WithFields(logrus.Fields{
		"component":   "self_service",
		"order":       el.Order.Code,
		"child_order": order.Code,
	}).Info("follow-up booked by attendee")
	return order, nil
}

func (s *SelfService) enabled(ctx context.Context, eventID uint) (*models.Event, *Settings, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrEventNotFound
		}
		return nil, nil, err
	}
	settings, err := s.settings.Get(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if !settings.SelfServiceEnabled {
		return nil, nil, ErrFeatureDisabled
	}
	return event, settings, nil
}

func (s *SelfService) lookup(ctx context.Context, eventID uint, code, secret string) (*models.Order, error) {
	if code == "" || secret == "" {
		return nil, userError(ErrOrderNotFound, msgNotFound)
	}
	order, err := s.orders.FindByCode(ctx, eventID, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, userError(ErrOrderNotFound, msgNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !secretMatches(order, secret) {
		return nil, userError(ErrOrderNotFound, msgNotFound)
	}
	if len(order.Positions) != 1 {
		return nil, userError(ErrNotEligible, msgMultiple)
	}
	return order, nil
}

func secretMatches(order *models.Order, secret string) bool {
	match := subtle.ConstantTimeCompare([]byte(order.Secret), []byte(secret)) == 1
	for _, p := range order.Positions {
		if subtle.ConstantTimeCompare([]byte(p.Secret), []byte(secret)) == 1 {
			match = true
		}
	}
	return match
}

func (s *SelfService) eligibility(ctx context.Context, eventID uint, code, secret string) (*Eligibility, error) {
	event, settings, err := s.enabled(ctx, eventID)
	if err != nil {
		return nil, err
	}
	order, err := s.lookup(ctx, eventID, code, secret)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPaid || order.RequireApproval {
		return nil, userError(ErrNotEligible, msgNotApproved)
	}

	origin, err := s.orders.FindPosition(ctx, order.Positions[0].ID)
	if err != nil {
		return nil, err
	}
	loc := event.Location()
	today := s.clock().In(loc)
	if origin.SubEvent == nil || now.With(origin.SubEvent.DateFrom.In(loc)).BeginningOfDay().After(today) {
		return nil, userError(ErrNotEligible, msgTooEarly)
	}

	cfg, err := s.configs.FindByItem(ctx, origin.ItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, userError(ErrNotEligible, msgNotConfigured)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.links.FindByBase(ctx, origin.ID); err == nil {
		return nil, s.alreadyScheduled(ctx, origin, event)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	target := event
	if cfg.TargetEventID != nil && *cfg.TargetEventID != event.ID {
		if target, err = s.events.FindByID(ctx, *cfg.TargetEventID); err != nil {
			return nil, err
		}
	}
	item, variation, err := s.resolver.Match(ctx, origin, target, cfg.SecondItemID)
	if err != nil {
		if isResolutionError(err) {
			return nil, userError(ErrNotEligible, msgNotConfigured)
		}
		return nil, err
	}

	window := ComputeWindow(origin.SubEvent.DateFrom, today, cfg.Days, cfg.MaxDays, loc)
	el := &Eligibility{
		Event:     event,
		Order:     order,
		Origin:    origin,
		Config:    cfg,
		Target:    target,
		Item:      item,
		Variation: variation,
		Window:    window,
		Settings:  settings,
	}
	if window.Empty() {
		return el, nil
	}

	candidates, err := s.subEvents.ListBetween(ctx, target.ID, window.Min, window.Max.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return el, nil
	}

	ids := make([]uint, len(candidates))
	for i := range candidates {
		ids[i] = candidates[i].ID
	}
	var variationID *uint
	if variation != nil {
		variationID = &variation.ID
	}
	avail, err := s.quotas.BulkAvailability(ctx, ids, item.ID, variationID)
	if err != nil {
		return nil, err
	}
	for _, se := range candidates {
		if avail[se.ID] == models.AvailabilityOK {
			el.Slots = append(el.Slots, se)
		}
	}
	return el, nil
}

func (s *SelfService) alreadyScheduled(ctx context.Context, origin *models.OrderPosition, event *models.Event) error {
	when := "an earlier date"
	link, err := s.links.FindByBase(ctx, origin.ID)
	if err == nil && link.ChildPosition != nil && link.ChildPosition.SubEvent != nil {
		when = link.ChildPosition.SubEvent.DateFrom.In(event.Location()).Format(displayLayout)
	}
	return userError(ErrAlreadyScheduled, fmtAlreadyBooked(when))
}

func fmtAlreadyBooked(when string) string {
	return fmt.Sprintf(msgAlreadyBooked, when)
}
