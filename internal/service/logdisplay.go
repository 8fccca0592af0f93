package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"gorm.io/gorm"
)

type LogLine struct {
	Action    string    `json:"action"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLog renders the scheduling entries of an order's audit log.
type AuditLog struct {
	orders repository.OrderRepository
}

func NewAuditLog(orders repository.OrderRepository) *AuditLog {
	return &AuditLog{orders: orders}
}

func (a *AuditLog) Lines(ctx context.Context, eventID uint, code string) ([]LogLine, error) {
	order, err := a.orders.FindByCode(ctx, eventID, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	entries, err := a.orders.LogEntries(ctx, order.ID, "autosched.")
	if err != nil {
		return nil, err
	}

	lines := make([]LogLine, 0, len(entries))
	for _, e := range entries {
		var data map[string]any
		if len(e.Data) > 0 {
			if err := json.Unmarshal(e.Data, &data); err != nil {
				return nil, fmt.Errorf("decode log entry %d: %w", e.ID, err)
			}
		}
		text := DescribeLogEntry(e.ActionType, data)
		if text == "" {
			continue
		}
		lines = append(lines, LogLine{Action: e.ActionType, Text: text, CreatedAt: e.CreatedAt})
	}
	return lines, nil
}

// DescribeLogEntry returns "" for actions it does not know.
func DescribeLogEntry(action string, data map[string]any) string {
	switch action {
	case ActionFailed:
		return fmt.Sprintf("Automatic scheduling of second dose failed: %v", data["reason"])
	case ActionScheduled:
		return fmt.Sprintf("Second dose scheduled automatically: %v", data["order"])
	case ActionCreated:
		return fmt.Sprintf("This order has been scheduled as the second dose for order %v", data["order"])
	}
	return ""
}
