package dto

import (
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/service"
)

const dateLayout = "2006-01-02"

type LookupRequest struct {
	Code   string `json:"code"`
	Secret string `json:"secret"`
}

type BookSlotRequest struct {
	Secret     string `json:"secret"`
	SubEventID uint   `json:"subevent_id"`
}

type LookupResponse struct {
	Code string `json:"code"`
	Next string `json:"next"`
}

type SlotResponse struct {
	ID       uint      `json:"id"`
	Name     string    `json:"name"`
	DateFrom time.Time `json:"date_from"`
}

type OptionsResponse struct {
	Order     string         `json:"order"`
	Event     string         `json:"event"`
	WindowMin string         `json:"window_min"`
	WindowMax string         `json:"window_max"`
	Slots     []SlotResponse `json:"slots"`
	Info      string         `json:"info,omitempty"`
	OrderInfo string         `json:"order_info,omitempty"`
}

type BookedResponse struct {
	Order       string    `json:"order"`
	Event       uint      `json:"event_id"`
	SubEventID  uint      `json:"subevent_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type ItemConfigResponse struct {
	ItemID        uint  `json:"item_id"`
	Days          int   `json:"days"`
	MaxDays       *int  `json:"max_days"`
	TargetEventID *uint `json:"event"`
	SecondItemID  *uint `json:"second_item"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToOptionsResponse(el *service.Eligibility) OptionsResponse {
	resp := OptionsResponse{
		Order:     el.Order.Code,
		Event:     el.Target.Slug,
		WindowMin: el.Window.Min.Format(dateLayout),
		WindowMax: el.Window.Max.Format(dateLayout),
		Slots:     make([]SlotResponse, 0, len(el.Slots)),
		Info:      el.Settings.SelfServiceInfo,
		OrderInfo: el.Settings.SelfServiceOrderInfo,
	}
	for _, se := range el.Slots {
		resp.Slots = append(resp.Slots, SlotResponse{ID: se.ID, Name: se.Name, DateFrom: se.DateFrom})
	}
	return resp
}

func ToBookedResponse(order *models.Order) BookedResponse {
	resp := BookedResponse{Order: order.Code, Event: order.EventID}
	if len(order.Positions) > 0 && order.Positions[0].SubEvent != nil {
		resp.SubEventID = order.Positions[0].SubEvent.ID
		resp.ScheduledAt = order.Positions[0].SubEvent.DateFrom
	}
	return resp
}

func ToItemConfigResponse(cfg *models.ItemConfig) ItemConfigResponse {
	return ItemConfigResponse{
		ItemID:        cfg.ItemID,
		Days:          cfg.Days,
		MaxDays:       cfg.MaxDays,
		TargetEventID: cfg.TargetEventID,
		SecondItemID:  cfg.SecondItemID,
	}
}
