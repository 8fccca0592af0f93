package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Check-in lists with this prefix are for badge printing, not attendance.
const printListPrefix = "Print"

type CheckinEvent struct {
	EventID    uint   `json:"event_id"`
	PositionID uint   `json:"position_id"`
	ListName   string `json:"list_name"`
}

// CheckinService turns platform check-ins into scheduling tasks.
type CheckinService struct {
	orders     repository.OrderRepository
	configs    repository.ItemConfigRepository
	settings   SettingsService
	dispatcher TaskDispatcher
	logger     *logrus.Logger
}

func NewCheckinService(orders repository.OrderRepository, configs repository.ItemConfigRepository, settings SettingsService, dispatcher TaskDispatcher, logger *logrus.Logger) *CheckinService {
	return &CheckinService{orders: orders, configs: configs, settings: settings, dispatcher: dispatcher, logger: logger}
}

// HandleCheckin reports whether a task was dispatched.
func (s *CheckinService) HandleCheckin(ctx context.Context, ev CheckinEvent) (bool, error) {
	log := s.logger.WithFields(logrus.Fields{"component": "checkin", "event": ev.EventID, "position": ev.PositionID})

	if strings.HasPrefix(ev.ListName, printListPrefix) {
		return false, nil
	}
	settings, err := s.settings.Get(ctx, ev.EventID)
	if err != nil {
		return false, err
	}
	if !settings.CheckinEnabled {
		return false, nil
	}

	pos, err := s.orders.FindPosition(ctx, ev.PositionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("checked-in position does not exist")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := s.configs.FindByItem(ctx, pos.ItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.dispatcher.Dispatch(ctx, ev.EventID, ev.PositionID); err != nil {
		return false, err
	}
	log.Info("scheduling task dispatched")
	return true, nil
}
