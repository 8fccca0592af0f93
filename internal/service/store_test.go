package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- In-memory store backing every repository ---

type memData struct {
	events    map[uint]*models.Event
	subEvents map[uint]*models.SubEvent
	items     map[uint]*models.Item
	quotas    []models.Quota
	questions []models.Question
	orders    map[uint]*models.Order
	positions map[uint]*models.OrderPosition
	answers   []models.Answer
	logs      []models.LogEntry
	settings  map[uint]map[string]string
	configs   map[uint]*models.ItemConfig
	links     []models.LinkedOrderPosition
}

func (d *memData) clone() *memData {
	c := &memData{
		events:    make(map[uint]*models.Event, len(d.events)),
		subEvents: make(map[uint]*models.SubEvent, len(d.subEvents)),
		items:     make(map[uint]*models.Item, len(d.items)),
		quotas:    append([]models.Quota(nil), d.quotas...),
		questions: append([]models.Question(nil), d.questions...),
		orders:    make(map[uint]*models.Order, len(d.orders)),
		positions: make(map[uint]*models.OrderPosition, len(d.positions)),
		answers:   append([]models.Answer(nil), d.answers...),
		logs:      append([]models.LogEntry(nil), d.logs...),
		settings:  make(map[uint]map[string]string, len(d.settings)),
		configs:   make(map[uint]*models.ItemConfig, len(d.configs)),
		links:     append([]models.LinkedOrderPosition(nil), d.links...),
	}
	for k, v := range d.events {
		e := *v
		c.events[k] = &e
	}
	for k, v := range d.subEvents {
		se := *v
		c.subEvents[k] = &se
	}
	for k, v := range d.items {
		it := *v
		c.items[k] = &it
	}
	for k, v := range d.orders {
		o := *v
		c.orders[k] = &o
	}
	for k, v := range d.positions {
		p := *v
		c.positions[k] = &p
	}
	for k, v := range d.settings {
		m := make(map[string]string, len(v))
		for sk, sv := range v {
			m[sk] = sv
		}
		c.settings[k] = m
	}
	for k, v := range d.configs {
		cfg := *v
		c.configs[k] = &cfg
	}
	return c
}

// memStore serializes transactions and rolls them back on error, which is
// enough isolation for the single-event scenarios exercised here.
type memStore struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	nextID uint
	d      *memData

	// lockErr is returned by FindByIDForUpdate when set.
	lockErr error
}

func newMemStore() *memStore {
	return &memStore{
		nextID: 10000,
		d: &memData{
			events:    map[uint]*models.Event{},
			subEvents: map[uint]*models.SubEvent{},
			items:     map[uint]*models.Item{},
			orders:    map[uint]*models.Order{},
			positions: map[uint]*models.OrderPosition{},
			settings:  map[uint]map[string]string{},
			configs:   map[uint]*models.ItemConfig{},
		},
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) Events() repository.EventRepository          { return memEvents{s} }
func (s *memStore) SubEvents() repository.SubEventRepository    { return memSubEvents{s} }
func (s *memStore) Catalog() repository.CatalogRepository       { return memCatalog{s} }
func (s *memStore) Quotas() repository.QuotaRepository          { return memQuotas{s} }
func (s *memStore) Orders() repository.OrderRepository          { return memOrders{s} }
func (s *memStore) Configs() repository.ItemConfigRepository    { return memConfigs{s} }
func (s *memStore) Links() repository.LinkRepository            { return memLinks{s} }
func (s *memStore) SettingsRepo() repository.SettingsRepository { return memSettings{s} }
func (s *memStore) Tx() repository.TxManager                    { return memTx{s} }

// --- fixture helpers ---

func (s *memStore) addEvent(e models.Event) *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	s.d.events[e.ID] = &e
	return &e
}

func (s *memStore) addItem(it models.Item) *models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.items[it.ID] = &it
	return &it
}

// addSlot creates an active occurrence with a quota of size for itemID.
// A negative size creates no quota at all.
func (s *memStore) addSlot(eventID, itemID uint, at time.Time, size int) *models.SubEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	se := &models.SubEvent{ID: s.id(), EventID: eventID, Name: at.Format(time.RFC3339), DateFrom: at, Active: true}
	s.d.subEvents[se.ID] = se
	if size >= 0 {
		sz := size
		sid := se.ID
		qid := s.id()
		s.d.quotas = append(s.d.quotas, models.Quota{
			ID: qid, EventID: eventID, SubEventID: &sid, Size: &sz,
			Items: []models.QuotaItem{{ID: s.id(), QuotaID: qid, ItemID: itemID}},
		})
	}
	c := *se
	return &c
}

func (s *memStore) addQuestion(q models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.questions = append(s.d.questions, q)
}

func (s *memStore) addOrder(o models.Order, positions ...models.OrderPosition) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.Positions = nil
	s.d.orders[o.ID] = &o
	for i := range positions {
		p := positions[i]
		p.OrderID = o.ID
		for _, a := range p.Answers {
			a.OrderPositionID = p.ID
			if a.Question != nil {
				a.QuestionID = a.Question.ID
				a.Question = nil
			}
			if a.ID == 0 {
				a.ID = s.id()
			}
			s.d.answers = append(s.d.answers, a)
		}
		p.Answers = nil
		s.d.positions[p.ID] = &p
	}
	c := o
	return &c
}

func (s *memStore) setConfig(cfg models.ItemConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.configs[cfg.ItemID] = &cfg
}

func (s *memStore) setSettings(eventID uint, values map[string]string) {
	_ = memSettings{s}.Set(context.Background(), eventID, values)
}

func (s *memStore) logsFor(orderID uint) []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LogEntry
	for _, l := range s.d.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) logData(entry models.LogEntry) map[string]any {
	var data map[string]any
	_ = json.Unmarshal(entry.Data, &data)
	return data
}

func (s *memStore) linkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.d.links)
}

func (s *memStore) ordersInEvent(eventID uint) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.d.orders {
		if o.EventID == eventID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) positionsOf(orderID uint) []models.OrderPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OrderPosition
	for _, p := range s.d.positions {
		if p.OrderID == orderID {
			out = append(out, s.assemblePosition(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PositionID < out[j].PositionID })
	return out
}

// assemblePosition must be called with mu held.
func (s *memStore) assemblePosition(p *models.OrderPosition) models.OrderPosition {
	out := *p
	if o, ok := s.d.orders[p.OrderID]; ok {
		oc := *o
		out.Order = &oc
	}
	if it, ok := s.d.items[p.ItemID]; ok {
		ic := *it
		out.Item = &ic
		if p.VariationID != nil {
			for i := range it.Variations {
				if it.Variations[i].ID == *p.VariationID {
					v := it.Variations[i]
					out.Variation = &v
				}
			}
		}
	}
	if p.SubEventID != nil {
		if se, ok := s.d.subEvents[*p.SubEventID]; ok {
			sc := *se
			out.SubEvent = &sc
		}
	}
	out.Answers = nil
	for _, a := range s.d.answers {
		if a.OrderPositionID != p.ID {
			continue
		}
		for i := range s.d.questions {
			if s.d.questions[i].ID == a.QuestionID {
				q := s.d.questions[i]
				a.Question = &q
			}
		}
		out.Answers = append(out.Answers, a)
	}
	return out
}

// --- TxManager ---

type memTx struct{ s *memStore }

func (m memTx) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.Lock()
	snapshot := m.s.d.clone()
	m.s.mu.Unlock()

	if err := fn(nil); err != nil {
		m.s.mu.Lock()
		m.s.d = snapshot
		m.s.mu.Unlock()
		return err
	}
	return nil
}

// --- EventRepository ---

type memEvents struct{ s *memStore }

func (m memEvents) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.d.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *e
	return &c, nil
}

func (m memEvents) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error) {
	if m.s.lockErr != nil {
		return nil, m.s.lockErr
	}
	return m.FindByID(ctx, id)
}

// --- SubEventRepository ---

type memSubEvents struct{ s *memStore }

func (m memSubEvents) FindByID(ctx context.Context, id uint) (*models.SubEvent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	se, ok := m.s.d.subEvents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *se
	return &c, nil
}

func (m memSubEvents) sorted(eventID uint, from, before time.Time) []models.SubEvent {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.SubEvent
	for _, se := range m.s.d.subEvents {
		if se.EventID != eventID || !se.Active || se.DateFrom.Before(from) {
			continue
		}
		if !before.IsZero() && !se.DateFrom.Before(before) {
			continue
		}
		out = append(out, *se)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateFrom.Equal(out[j].DateFrom) {
			return out[i].ID < out[j].ID
		}
		return out[i].DateFrom.Before(out[j].DateFrom)
	})
	return out
}

func (m memSubEvents) ListFrom(ctx context.Context, eventID uint, from time.Time, limit int) ([]models.SubEvent, error) {
	out := m.sorted(eventID, from, time.Time{})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memSubEvents) ListBetween(ctx context.Context, eventID uint, from, before time.Time) ([]models.SubEvent, error) {
	return m.sorted(eventID, from, before), nil
}

// --- CatalogRepository ---

type memCatalog struct{ s *memStore }

func (m memCatalog) ItemsByEvent(ctx context.Context, eventID uint) ([]models.Item, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.Item
	for _, it := range m.s.d.items {
		if it.EventID == eventID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCatalog) FindItem(ctx context.Context, id uint) (*models.Item, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	it, ok := m.s.d.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *it
	return &c, nil
}

func (m memCatalog) QuestionByIdentifier(ctx context.Context, tx *gorm.DB, eventID uint, identifier string) (*models.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, q := range m.s.d.questions {
		if q.EventID == eventID && q.Identifier == identifier {
			c := q
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// --- QuotaRepository ---

type memQuotas struct{ s *memStore }

func quotaCovers(q models.Quota, itemID uint, variationID *uint) bool {
	for _, qi := range q.Items {
		if qi.ItemID != itemID {
			continue
		}
		if qi.VariationID == nil || (variationID != nil && *qi.VariationID == *variationID) {
			return true
		}
	}
	return false
}

func (m memQuotas) availability(subEventID, itemID uint, variationID *uint) models.Availability {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	found := false
	for _, q := range m.s.d.quotas {
		if q.SubEventID == nil || *q.SubEventID != subEventID || !quotaCovers(q, itemID, variationID) {
			continue
		}
		found = true
		if q.Size == nil {
			continue
		}
		used := 0
		for _, p := range m.s.d.positions {
			if p.SubEventID == nil || *p.SubEventID != subEventID || !quotaCovers(q, p.ItemID, p.VariationID) {
				continue
			}
			o := m.s.d.orders[p.OrderID]
			if o != nil && (o.Status == models.OrderPending || o.Status == models.OrderPaid) {
				used++
			}
		}
		if used >= *q.Size {
			return models.AvailabilitySoldOut
		}
	}
	if !found {
		return models.AvailabilityUnknown
	}
	return models.AvailabilityOK
}

func (m memQuotas) Availability(ctx context.Context, tx *gorm.DB, subEventID, itemID uint, variationID *uint) (models.Availability, error) {
	return m.availability(subEventID, itemID, variationID), nil
}

func (m memQuotas) BulkAvailability(ctx context.Context, subEventIDs []uint, itemID uint, variationID *uint) (map[uint]models.Availability, error) {
	out := make(map[uint]models.Availability, len(subEventIDs))
	for _, id := range subEventIDs {
		out[id] = m.availability(id, itemID, variationID)
	}
	return out, nil
}

// --- OrderRepository ---

type memOrders struct{ s *memStore }

func (m memOrders) FindPosition(ctx context.Context, id uint) (*models.OrderPosition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.d.positions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := m.s.assemblePosition(p)
	return &out, nil
}

func (m memOrders) FindByCode(ctx context.Context, eventID uint, code string) (*models.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, o := range m.s.d.orders {
		if o.EventID != eventID || o.Code != code {
			continue
		}
		out := *o
		for _, p := range m.s.d.positions {
			if p.OrderID == o.ID {
				pc := m.s.assemblePosition(p)
				pc.Order = nil
				out.Positions = append(out.Positions, pc)
			}
		}
		sort.Slice(out.Positions, func(i, j int) bool { return out.Positions[i].PositionID < out.Positions[j].PositionID })
		return &out, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memOrders) CodeExists(ctx context.Context, tx *gorm.DB, eventID uint, code string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, o := range m.s.d.orders {
		if o.EventID == eventID && o.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m memOrders) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	order.ID = m.s.id()
	c := *order
	c.Positions = nil
	m.s.d.orders[c.ID] = &c
	return nil
}

func (m memOrders) CreatePosition(ctx context.Context, tx *gorm.DB, pos *models.OrderPosition) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	pos.ID = m.s.id()
	c := *pos
	c.Answers = nil
	m.s.d.positions[c.ID] = &c
	return nil
}

func (m memOrders) CreateAnswer(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	answer.ID = m.s.id()
	c := *answer
	c.Question = nil
	m.s.d.answers = append(m.s.d.answers, c)
	return nil
}

func (m memOrders) LogAction(ctx context.Context, tx *gorm.DB, orderID uint, action string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.d.logs = append(m.s.d.logs, models.LogEntry{
		ID:         m.s.id(),
		OrderID:    orderID,
		ActionType: action,
		Data:       datatypes.JSON(raw),
		CreatedAt:  time.Now(),
	})
	return nil
}

func (m memOrders) LogEntries(ctx context.Context, orderID uint, actionPrefix string) ([]models.LogEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.LogEntry
	for _, l := range m.s.d.logs {
		if l.OrderID == orderID && strings.HasPrefix(l.ActionType, actionPrefix) {
			out = append(out, l)
		}
	}
	return out, nil
}

// --- ItemConfigRepository ---

type memConfigs struct{ s *memStore }

func (m memConfigs) FindByItem(ctx context.Context, itemID uint) (*models.ItemConfig, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cfg, ok := m.s.d.configs[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *cfg
	return &c, nil
}

func (m memConfigs) ListByEvent(ctx context.Context, eventID uint) ([]models.ItemConfig, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.ItemConfig
	for itemID, cfg := range m.s.d.configs {
		if it, ok := m.s.d.items[itemID]; ok && it.EventID == eventID {
			out = append(out, *cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m memConfigs) Save(ctx context.Context, cfg *models.ItemConfig) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if existing, ok := m.s.d.configs[cfg.ItemID]; ok {
		cfg.ID = existing.ID
	} else {
		cfg.ID = m.s.id()
	}
	c := *cfg
	m.s.d.configs[cfg.ItemID] = &c
	return nil
}

func (m memConfigs) DeleteByItem(ctx context.Context, itemID uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.d.configs, itemID)
	return nil
}

// --- LinkRepository ---

type memLinks struct{ s *memStore }

func (m memLinks) ExistsForPosition(ctx context.Context, tx *gorm.DB, positionID uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, l := range m.s.d.links {
		if l.BasePositionID == positionID || l.ChildPositionID == positionID {
			return true, nil
		}
	}
	return false, nil
}

func (m memLinks) FindByBase(ctx context.Context, positionID uint) (*models.LinkedOrderPosition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, l := range m.s.d.links {
		if l.BasePositionID == positionID {
			c := l
			if p, ok := m.s.d.positions[l.ChildPositionID]; ok {
				child := m.s.assemblePosition(p)
				c.ChildPosition = &child
			}
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memLinks) Create(ctx context.Context, tx *gorm.DB, link *models.LinkedOrderPosition) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, l := range m.s.d.links {
		if l.BasePositionID == link.BasePositionID || l.ChildPositionID == link.ChildPositionID {
			return repository.ErrDuplicateLink
		}
	}
	link.ID = m.s.id()
	link.CreatedAt = time.Now()
	m.s.d.links = append(m.s.d.links, *link)
	return nil
}

// --- SettingsRepository ---

type memSettings struct{ s *memStore }

func (m memSettings) Get(ctx context.Context, eventID uint) (map[string]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.s.d.settings[eventID] {
		out[k] = v
	}
	return out, nil
}

func (m memSettings) Set(ctx context.Context, eventID uint, values map[string]string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.d.settings[eventID] == nil {
		m.s.d.settings[eventID] = map[string]string{}
	}
	for k, v := range values {
		m.s.d.settings[eventID][k] = v
	}
	return nil
}

// --- Mock Messenger / OrderEvents ---

type mockMessenger struct {
	mu      sync.Mutex
	mails   []MailMessage
	sms     []SMSMessage
	sendErr error
}

func (m *mockMessenger) SendMail(ctx context.Context, msg MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, msg)
	return m.sendErr
}

func (m *mockMessenger) SendSMS(ctx context.Context, msg SMSMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sms = append(m.sms, msg)
	return m.sendErr
}

type mockOrderEvents struct {
	mu     sync.Mutex
	placed []string
	paid   []string
}

func (m *mockOrderEvents) OrderPlaced(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed = append(m.placed, order.Code)
	return nil
}

func (m *mockOrderEvents) OrderPaid(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paid = append(m.paid, order.Code)
	return nil
}
