//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/lock"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
	"github.com/Eursukkul/booking-microservice/autosched-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var firstDose = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type series struct {
	event  *models.Event
	item   *models.Item
	origin *models.SubEvent
}

func createSeries(t *testing.T) *series {
	t.Helper()
	s := &series{
		event: &models.Event{Slug: "vacc", Name: "Vaccination", HasSubEvents: true, Timezone: "UTC"},
	}
	require.NoError(t, testDB.Create(s.event).Error)
	s.item = &models.Item{EventID: s.event.ID, Name: "Vaccine"}
	require.NoError(t, testDB.Create(s.item).Error)
	s.origin = &models.SubEvent{EventID: s.event.ID, DateFrom: firstDose, Active: true}
	require.NoError(t, testDB.Create(s.origin).Error)
	require.NoError(t, testDB.Create(&models.ItemConfig{ItemID: s.item.ID, Days: 14}).Error)
	return s
}

func (s *series) addSlot(t *testing.T, at time.Time, size int) *models.SubEvent {
	t.Helper()
	se := &models.SubEvent{EventID: s.event.ID, DateFrom: at, Active: true}
	require.NoError(t, testDB.Create(se).Error)
	q := &models.Quota{EventID: s.event.ID, SubEventID: &se.ID, Size: &size,
		Items: []models.QuotaItem{{ItemID: s.item.ID}}}
	require.NoError(t, testDB.Create(q).Error)
	return se
}

func (s *series) addOrder(t *testing.T, n int, status models.OrderStatus, subEventID uint) *models.OrderPosition {
	t.Helper()
	code := fmt.Sprintf("T%04d", n)
	order := &models.Order{EventID: s.event.ID, Code: code, Secret: code + "-secret", Status: status}
	require.NoError(t, testDB.Create(order).Error)
	pos := &models.OrderPosition{OrderID: order.ID, PositionID: 1, ItemID: s.item.ID, SubEventID: &subEventID,
		Secret: code + "-position"}
	require.NoError(t, testDB.Create(pos).Error)
	return pos
}

func newOrchestrator(lockTimeout time.Duration) (*service.Orchestrator, *service.Transactor) {
	log := logger.Discard()
	events := repository.NewEventRepository(testDB, lockTimeout)
	orders := repository.NewOrderRepository(testDB)
	catalog := repository.NewCatalogRepository(testDB)
	quotas := repository.NewQuotaRepository(testDB)
	links := repository.NewLinkRepository(testDB)
	settings := service.NewSettingsService(repository.NewSettingsRepository(testDB), events)

	transactor := service.NewTransactor(service.TransactorDeps{
		Locker:   lock.NewLocalLocker(10 * time.Second),
		Tx:       repository.NewTxManager(testDB),
		Events:   events,
		Quotas:   quotas,
		Orders:   orders,
		Catalog:  catalog,
		Links:    links,
		Settings: settings,
		Logger:   log,
	})
	search := service.NewSlotSearch(repository.NewSubEventRepository(testDB), quotas, 250, log)
	orch := service.NewOrchestrator(events, orders, repository.NewItemConfigRepository(testDB), links,
		service.NewResolver(catalog, orders, log), search, transactor, log)
	return orch, transactor
}

// 20 origins race for one remaining seat: exactly one follow-up is booked.
func TestConcurrentLastSlot(t *testing.T) {
	cleanTables()
	s := createSeries(t)
	slot := s.addSlot(t, firstDose.AddDate(0, 0, 14), 1)
	orch, _ := newOrchestrator(5 * time.Second)

	const origins = 20
	positions := make([]*models.OrderPosition, origins)
	for i := range positions {
		positions[i] = s.addOrder(t, i, models.OrderPaid, s.origin.ID)
	}

	var wg sync.WaitGroup
	states := make(chan service.State, origins)
	wg.Add(origins)
	for _, p := range positions {
		go func(id uint) {
			defer wg.Done()
			res, err := orch.Run(context.Background(), s.event.ID, id)
			if !assert.NoError(t, err) {
				return
			}
			states <- res.State
		}(p.ID)
	}
	wg.Wait()
	close(states)

	count := map[service.State]int{}
	for st := range states {
		count[st]++
	}
	assert.Equal(t, 1, count[service.StateDone])
	assert.Equal(t, origins-1, count[service.StateFailed])

	var booked int64
	testDB.Model(&models.OrderPosition{}).Where("sub_event_id = ?", slot.ID).Count(&booked)
	assert.Equal(t, int64(1), booked)

	var failures int64
	testDB.Model(&models.LogEntry{}).Where("action_type = ?", service.ActionFailed).Count(&failures)
	assert.Equal(t, int64(origins-1), failures)
}

// Repeated triggers for the same origin produce a single link.
func TestDuplicateTriggers(t *testing.T) {
	cleanTables()
	s := createSeries(t)
	s.addSlot(t, firstDose.AddDate(0, 0, 14), 100)
	origin := s.addOrder(t, 1, models.OrderPaid, s.origin.ID)
	orch, _ := newOrchestrator(5 * time.Second)

	const triggers = 10
	var wg sync.WaitGroup
	wg.Add(triggers)
	for i := 0; i < triggers; i++ {
		go func() {
			defer wg.Done()
			res, err := orch.Run(context.Background(), s.event.ID, origin.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, service.StateDone, res.State)
			}
		}()
	}
	wg.Wait()

	var links, orders int64
	testDB.Model(&models.LinkedOrderPosition{}).Where("base_position_id = ?", origin.ID).Count(&links)
	testDB.Model(&models.Order{}).Count(&orders)
	assert.Equal(t, int64(1), links)
	assert.Equal(t, int64(2), orders)
}

func TestEventRowLockTimeout(t *testing.T) {
	cleanTables()
	s := createSeries(t)
	slot := s.addSlot(t, firstDose.AddDate(0, 0, 14), 10)
	origin := s.addOrder(t, 1, models.OrderPaid, s.origin.ID)
	_, transactor := newOrchestrator(200 * time.Millisecond)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- testDB.Transaction(func(tx *gorm.DB) error {
			var ev models.Event
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, s.event.ID).Error; err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	full, err := repository.NewOrderRepository(testDB).FindPosition(context.Background(), origin.ID)
	require.NoError(t, err)
	order, err := transactor.Book(context.Background(), service.BookingRequest{
		Origin: full, Item: s.item, SubEvent: slot, OriginalEvent: s.event, Source: service.SourceAutosched,
	})

	close(release)
	require.NoError(t, <-done)
	assert.ErrorIs(t, err, service.ErrLockTimeout)
	assert.Nil(t, order)
}

func TestQuotaAvailability(t *testing.T) {
	cleanTables()
	s := createSeries(t)
	full := s.addSlot(t, firstDose.AddDate(0, 0, 14), 2)
	open := s.addSlot(t, firstDose.AddDate(0, 0, 15), 2)
	noQuota := &models.SubEvent{EventID: s.event.ID, DateFrom: firstDose.AddDate(0, 0, 16), Active: true}
	require.NoError(t, testDB.Create(noQuota).Error)

	s.addOrder(t, 1, models.OrderPaid, full.ID)
	s.addOrder(t, 2, models.OrderPending, full.ID)
	s.addOrder(t, 3, models.OrderCanceled, open.ID)
	s.addOrder(t, 4, models.OrderExpired, open.ID)
	s.addOrder(t, 5, models.OrderPaid, open.ID)

	quotas := repository.NewQuotaRepository(testDB)
	got, err := quotas.BulkAvailability(context.Background(), []uint{full.ID, open.ID, noQuota.ID}, s.item.ID, nil)

	require.NoError(t, err)
	assert.Equal(t, models.AvailabilitySoldOut, got[full.ID])
	assert.Equal(t, models.AvailabilityOK, got[open.ID])
	assert.Equal(t, models.AvailabilityUnknown, got[noQuota.ID])

	single, err := quotas.Availability(context.Background(), nil, open.ID, s.item.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityOK, single)
}
