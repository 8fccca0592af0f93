package service

import (
	"context"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
)

// OrderEvents notifies the platform about orders created here.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
	OrderPaid(ctx context.Context, order *models.Order) error
}

type MailMessage struct {
	OrderID      uint   `json:"order_id"`
	OrderCode    string `json:"order_code"`
	EventID      uint   `json:"event_id"`
	To           string `json:"to"`
	Locale       string `json:"locale"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	AttachTicket bool   `json:"attach_ticket"`
	LogAction    string `json:"log_action"`
}

type SMSMessage struct {
	OrderID uint   `json:"order_id"`
	EventID uint   `json:"event_id"`
	To      string `json:"to"`
	Text    string `json:"text"`
}

// Messenger delivers messages to an order's contact.
type Messenger interface {
	SendMail(ctx context.Context, msg MailMessage) error
	SendSMS(ctx context.Context, msg SMSMessage) error
}

// TaskDispatcher enqueues a scheduling run for one origin position.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, eventID, positionID uint) error
}
