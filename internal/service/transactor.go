package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/lock"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/metrics"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ3789"
	codeLength      = 5
	codeAttempts    = 20
	followUpExpires = 30 * 24 * time.Hour

	defaultScheduledLayout = "2006-01-02 15:04"
)

// Short date-time layouts of {scheduled_datetime}, by order language.
var scheduledLayouts = map[string]string{
	"de": "02.01.2006 15:04",
	"en": defaultScheduledLayout,
	"es": "02/01/2006 15:04",
	"fr": "02/01/2006 15:04",
	"it": "02/01/2006 15:04",
	"nl": "02-01-2006 15:04",
}

// ScheduledLayout returns the layout for locale. Region and variant suffixes
// such as "de-informal" fall back to the language.
func ScheduledLayout(locale string) string {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if layout, ok := scheduledLayouts[lang]; ok {
		return layout
	}
	return defaultScheduledLayout
}

var errSoldOut = errors.New("sold out")

// BookingRequest is one attempt to book the follow-up of Origin on SubEvent.
type BookingRequest struct {
	// Origin must have Order and Answers (with Question and Options) loaded.
	Origin    *models.OrderPosition
	Item      *models.Item
	Variation *models.ItemVariation
	SubEvent  *models.SubEvent
	// OriginalEvent supplies messaging settings and the display timezone.
	OriginalEvent *models.Event
	Source        string
}

// Booker creates follow-up orders.
type Booker interface {
	// Book returns (nil, nil) when the occurrence has no capacity left.
	// The caller must make sure Origin has no follow-up yet.
	Book(ctx context.Context, req BookingRequest) (*models.Order, error)
}

type Transactor struct {
	locker      lock.EventLocker
	tx          repository.TxManager
	events      repository.EventRepository
	quotas      repository.QuotaRepository
	orders      repository.OrderRepository
	catalog     repository.CatalogRepository
	links       repository.LinkRepository
	settings    SettingsService
	messenger   Messenger
	orderEvents OrderEvents
	publicURL   string
	logger      *logrus.Logger
}

type TransactorDeps struct {
	Locker      lock.EventLocker
	Tx          repository.TxManager
	Events      repository.EventRepository
	Quotas      repository.QuotaRepository
	Orders      repository.OrderRepository
	Catalog     repository.CatalogRepository
	Links       repository.LinkRepository
	Settings    SettingsService
	Messenger   Messenger
	OrderEvents OrderEvents
	PublicURL   string
	Logger      *logrus.Logger
}

func NewTransactor(d TransactorDeps) *Transactor {
	return &Transactor{
		locker:      d.Locker,
		tx:          d.Tx,
		events:      d.Events,
		quotas:      d.Quotas,
		orders:      d.Orders,
		catalog:     d.Catalog,
		links:       d.Links,
		settings:    d.Settings,
		messenger:   d.Messenger,
		orderEvents: d.OrderEvents,
		publicURL:   strings.TrimRight(d.PublicURL, "/"),
		logger:      d.Logger,
	}
}

func (t *Transactor) Book(ctx context.Context, req BookingRequest) (*models.Order, error) {
	ctx, span := otel.Tracer("autosched").Start(ctx, "Transactor.Book", trace.WithAttributes(
		attribute.Int64("autosched.position", int64(req.Origin.ID)),
		attribute.Int64("autosched.subevent", int64(req.SubEvent.ID)),
	))
	defer span.End()

	log := t.logger.WithFields(logrus.Fields{
		"component": "transactor",
		"order":     req.Origin.Order.Code,
		"position":  req.Origin.ID,
		"subevent":  req.SubEvent.ID,
	})

	release, err := t.locker.Acquire(ctx, req.Item.EventID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			metrics.IncBookingAttempt("lock_timeout")
			span.SetStatus(codes.Error, "lock timeout")
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("acquire event lock: %w", err)
	}
	defer release()

	var (
		order  *models.Order
		target *models.Event
	)
	err = t.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		var err error
		target, err = t.events.FindByIDForUpdate(ctx, tx, req.Item.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrLockTimeout) {
				return ErrLockTimeout
			}
			return err
		}

		var variationID *uint
		if req.Variation != nil {
			variationID = &req.Variation.ID
		}
		avail, err := t.quotas.Availability(ctx, tx, req.SubEvent.ID, req.Item.ID, variationID)
		if err != nil {
			return err
		}
		if avail != models.AvailabilityOK {
			return errSoldOut
		}

		order, err = t.create(ctx, tx, req, target)
		return err
	})

	switch {
	case errors.Is(err, errSoldOut):
		metrics.IncBookingAttempt("sold_out")
		log.Info("occurrence is sold out")
		return nil, nil
	case errors.Is(err, repository.ErrDuplicateLink):
		metrics.IncBookingAttempt("duplicate")
		log.Info("origin was linked concurrently, booking rolled back")
		return nil, ErrAlreadyScheduled
	case errors.Is(err, ErrLockTimeout):
		metrics.IncBookingAttempt("lock_timeout")
		span.SetStatus(codes.Error, "lock timeout")
		return nil, ErrLockTimeout
	case err != nil:
		metrics.IncBookingAttempt("error")
		span.RecordError(err)
		return nil, err
	}

	metrics.IncBookingAttempt("booked")
	log.WithField("child_order", order.Code).Info("follow-up order created")

	release()
	t.afterCommit(ctx, req, target, order)
	return order, nil
}

func (t *Transactor) create(ctx context.Context, tx *gorm.DB, req BookingRequest, target *models.Event) (*models.Order, error) {
	origin := req.Origin
	code, err := t.newCode(ctx, tx, target.ID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		EventID:         target.ID,
		Code:            code,
		Secret:          newSecret(),
		Status:          models.OrderPaid,
		RequireApproval: false,
		TestMode:        origin.Order.TestMode,
		Email:           origin.Order.Email,
		Phone:           origin.Order.Phone,
		Locale:          origin.Order.Locale,
		Expires:         time.Now().Add(followUpExpires),
		Total:           0,
		SalesChannel:    origin.Order.SalesChannel,
		Comment:         fmt.Sprintf("Auto-generated through scheduling from order %s", origin.Order.Code),
		MetaInfo:        origin.Order.MetaInfo,
	}
	if err := t.orders.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	err = t.orders.LogAction(ctx, tx, origin.OrderID, ActionScheduled, map[string]any{
		"position":   origin.ID,
		"event":      target.ID,
		"event_slug": target.Slug,
		"order":      order.Code,
	})
	if err != nil {
		return nil, err
	}
	err = t.orders.LogAction(ctx, tx, order.ID, ActionCreated, map[string]any{
		"position":   origin.ID,
		"event":      req.OriginalEvent.ID,
		"event_slug": req.OriginalEvent.Slug,
		"order":      origin.Order.Code,
	})
	if err != nil {
		return nil, err
	}
	if err := t.orders.LogAction(ctx, tx, order.ID, ActionOrderPlaced, map[string]any{"source": req.Source}); err != nil {
		return nil, err
	}

	subEventID := req.SubEvent.ID
	pos := &models.OrderPosition{
		OrderID:       order.ID,
		PositionID:    1,
		ItemID:        req.Item.ID,
		SubEventID:    &subEventID,
		Price:         0,
		Secret:        newSecret(),
		AttendeeName:  origin.AttendeeName,
		AttendeeEmail: origin.AttendeeEmail,
		Company:       origin.Company,
		Street:        origin.Street,
		Zipcode:       origin.Zipcode,
		City:          origin.City,
		Country:       origin.Country,
		State:         origin.State,
		MetaInfo:      origin.MetaInfo,
	}
	if req.Variation != nil {
		variationID := req.Variation.ID
		pos.VariationID = &variationID
	}
	if err := t.orders.CreatePosition(ctx, tx, pos); err != nil {
		return nil, fmt.Errorf("create position: %w", err)
	}

	if err := t.copyAnswers(ctx, tx, origin, pos, target.ID); err != nil {
		return nil, err
	}

	link := &models.LinkedOrderPosition{BasePositionID: origin.ID, ChildPositionID: pos.ID}
	if err := t.links.Create(ctx, tx, link); err != nil {
		return nil, err
	}

	pos.SubEvent = req.SubEvent
	order.Positions = []models.OrderPosition{*pos}
	return order, nil
}

// copyAnswers carries answers over to questions of the target event with the same identifier.
// Answers without such a question are dropped, as are options without a same-identifier option.
func (t *Transactor) copyAnswers(ctx context.Context, tx *gorm.DB, origin, child *models.OrderPosition, targetEventID uint) error {
	for _, a := range origin.Answers {
		if a.Question == nil {
			continue
		}
		q, err := t.catalog.QuestionByIdentifier(ctx, tx, targetEventID, a.Question.Identifier)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		answer := &models.Answer{
			OrderPositionID: child.ID,
			QuestionID:      q.ID,
			Answer:          a.Answer,
			File:            a.File,
		}
		for _, opt := range a.Options {
			for _, candidate := range q.Options {
				if candidate.Identifier == opt.Identifier {
					answer.Options = append(answer.Options, candidate)
				}
			}
		}
		if err := t.orders.CreateAnswer(ctx, tx, answer); err != nil {
			return fmt.Errorf("copy answer: %w", err)
		}
		child.Answers = append(child.Answers, *answer)
	}
	return nil
}

func (t *Transactor) newCode(ctx context.Context, tx *gorm.DB, eventID uint) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		exists, err := t.orders.CodeExists(ctx, tx, eventID, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique order code")
}

func randomCode() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func newSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// afterCommit runs the hooks of a committed booking. Failures are logged only.
func (t *Transactor) afterCommit(ctx context.Context, req BookingRequest, target *models.Event, order *models.Order) {
	log := t.logger.WithFields(logrus.Fields{"component": "transactor", "order": order.Code})

	if t.orderEvents != nil {
		if err := t.orderEvents.OrderPlaced(ctx, order); err != nil {
			log.WithError(err).Error("order placed notification failed")
		}
		if err := t.orderEvents.OrderPaid(ctx, order); err != nil {
			log.WithError(err).Error("order paid notification failed")
		}
	}

	if t.messenger == nil || t.settings == nil {
		return
	}
	settings, err := t.settings.Get(ctx, req.OriginalEvent.ID)
	if err != nil {
		log.WithError(err).Error("could not load messaging settings")
		return
	}

	vars := messageVars(target, order, t.publicURL)
	vars["scheduled_datetime"] = req.SubEvent.DateFrom.In(req.OriginalEvent.Location()).Format(ScheduledLayout(order.Locale))

	if settings.MailEnabled && order.Email != "" {
		msg := MailMessage{
			OrderID:      order.ID,
			OrderCode:    order.Code,
			EventID:      target.ID,
			To:           order.Email,
			Locale:       order.Locale,
			Subject:      Render(settings.MailSubject, vars),
			Body:         Render(settings.MailBody, vars),
			AttachTicket: true,
			LogAction:    "order.email.order_placed",
		}
		if err := t.messenger.SendMail(ctx, msg); err != nil {
			log.WithError(err).Error("follow-up email could not be sent")
		}
	}

	if settings.SMSEnabled && order.Phone != "" {
		msg := SMSMessage{
			OrderID: order.ID,
			EventID: req.OriginalEvent.ID,
			To:      order.Phone,
			Text:    Render(settings.SMSText, vars),
		}
		if err := t.messenger.SendSMS(ctx, msg); err != nil {
			log.WithError(err).Error("follow-up SMS could not be sent")
		}
	}
}
