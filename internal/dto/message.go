package dto

import "time"

// ScheduleTask asks for a scheduling run for one origin position.
// Attempt counts lock-timeout retries already made.
type ScheduleTask struct {
	EventID    uint `json:"event_id"`
	PositionID uint `json:"position_id"`
	Attempt    int  `json:"attempt"`
}

// CheckinMessage is published by the platform for every check-in.
type CheckinMessage struct {
	EventID    uint   `json:"event_id"`
	PositionID uint   `json:"position_id"`
	ListName   string `json:"list_name"`
}

// ItemCopiedMessage is published by the platform when a product is cloned.
type ItemCopiedMessage struct {
	SourceItemID uint `json:"source_item_id"`
	TargetItemID uint `json:"target_item_id"`
}

// EventCopiedMessage is published when an event is cloned. ItemMap maps source
// product ids to the ids of their clones.
type EventCopiedMessage struct {
	SourceEventID uint          `json:"source_event_id"`
	TargetEventID uint          `json:"target_event_id"`
	ItemMap       map[uint]uint `json:"item_map"`
}

// OrderEventMessage announces an order created by this service.
type OrderEventMessage struct {
	EventID    uint      `json:"event_id"`
	OrderID    uint      `json:"order_id"`
	Code       string    `json:"code"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}
