package service

import (
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/lock"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/logger"
)

const (
	eventID      uint = 1
	itemID       uint = 10
	originOrder  uint = 500
	originPos    uint = 501
	allergiesQID uint = 700
	typeQID      uint = 701
	optionA      uint = 801
	optionB      uint = 802
)

var originAt = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func day(n int) time.Time { return originAt.AddDate(0, 0, n) }

// world is one vaccination series with a paid single-position order
// on originAt, configured for a follow-up 14 days later.
type world struct {
	store       *memStore
	event       *models.Event
	item        *models.Item
	origin      *models.SubEvent
	messenger   *mockMessenger
	orderEvents *mockOrderEvents
	locker      *lock.LocalLocker
}

func newWorld(t *testing.T) *world {
	t.Helper()
	s := newMemStore()
	w := &world{
		store:       s,
		messenger:   &mockMessenger{},
		orderEvents: &mockOrderEvents{},
		locker:      lock.NewLocalLocker(2 * time.Second),
	}

	w.event = s.addEvent(models.Event{ID: eventID, Slug: "vacc", Name: "Vaccination Center", HasSubEvents: true})
	w.item = s.addItem(models.Item{ID: itemID, EventID: eventID, Name: "Vaccine", InternalName: "vaccine"})
	w.origin = s.addSlot(eventID, itemID, originAt, -1)

	s.addQuestion(models.Question{ID: allergiesQID, EventID: eventID, Identifier: "allergies"})
	s.addQuestion(models.Question{ID: typeQID, EventID: eventID, Identifier: "type", Options: []models.QuestionOption{
		{ID: optionA, QuestionID: typeQID, Identifier: "A"},
		{ID: optionB, QuestionID: typeQID, Identifier: "B"},
	}})

	originSubEvent := w.origin.ID
	s.addOrder(models.Order{
		ID:           originOrder,
		EventID:      eventID,
		Code:         "ABC12",
		Secret:       "ordersecret",
		Status:       models.OrderPaid,
		Email:        "jane@example.org",
		Phone:        "+4930123456",
		Locale:       "de",
		SalesChannel: "web",
		MetaInfo:     `{"source":"import"}`,
	}, models.OrderPosition{
		ID:           originPos,
		PositionID:   1,
		ItemID:       itemID,
		SubEventID:   &originSubEvent,
		Price:        0,
		Secret:       "positionsecret",
		AttendeeName: "Jane Doe",
		Company:      "ACME",
		Street:       "Main St 1",
		Zipcode:      "10115",
		City:         "Berlin",
		Country:      "DE",
		Answers: []models.Answer{
			{QuestionID: allergiesQID, Answer: "none"},
			{QuestionID: typeQID, Answer: "A", Options: []models.QuestionOption{{ID: optionA, QuestionID: typeQID, Identifier: "A"}}},
		},
	})

	s.setConfig(models.ItemConfig{ID: 900, ItemID: itemID, Days: 14})
	return w
}

// addPaidOrder adds another single-position order for item on the origin occurrence.
func (w *world) addPaidOrder(orderID, positionID uint, code string) {
	subEventID := w.origin.ID
	w.store.addOrder(models.Order{ID: orderID, EventID: eventID, Code: code, Secret: code + "secret", Status: models.OrderPaid},
		models.OrderPosition{ID: positionID, PositionID: 1, ItemID: itemID, SubEventID: &subEventID, Secret: code + "possecret"})
}

func (w *world) settings() SettingsService {
	return NewSettingsService(w.store.SettingsRepo(), w.store.Events())
}

func (w *world) resolver() Resolver {
	return NewResolver(w.store.Catalog(), w.store.Orders(), logger.Discard())
}

func (w *world) transactor() *Transactor {
	return NewTransactor(TransactorDeps{
		Locker:      w.locker,
		Tx:          w.store.Tx(),
		Events:      w.store.Events(),
		Quotas:      w.store.Quotas(),
		Orders:      w.store.Orders(),
		Catalog:     w.store.Catalog(),
		Links:       w.store.Links(),
		Settings:    w.settings(),
		Messenger:   w.messenger,
		OrderEvents: w.orderEvents,
		PublicURL:   "https://tickets.example.org/",
		Logger:      logger.Discard(),
	})
}

func (w *world) search(maxCandidates int) *SlotSearch {
	return NewSlotSearch(w.store.SubEvents(), w.store.Quotas(), maxCandidates, logger.Discard())
}

func (w *world) orchestrator() *Orchestrator {
	return NewOrchestrator(w.store.Events(), w.store.Orders(), w.store.Configs(), w.store.Links(),
		w.resolver(), w.search(250), w.transactor(), logger.Discard())
}

func (w *world) selfService(today time.Time) *SelfService {
	return NewSelfService(SelfServiceDeps{
		Events:    w.store.Events(),
		Orders:    w.store.Orders(),
		Configs:   w.store.Configs(),
		Links:     w.store.Links(),
		SubEvents: w.store.SubEvents(),
		Quotas:    w.store.Quotas(),
		Settings:  w.settings(),
		Resolver:  w.resolver(),
		Booker:    w.transactor(),
		Clock:     func() time.Time { return today },
		Logger:    logger.Discard(),
	})
}

func actions(entries []models.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ActionType
	}
	return out
}
