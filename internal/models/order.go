package models

import (
	"time"

	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderExpired  OrderStatus = "expired"
	OrderCanceled OrderStatus = "canceled"
)

type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	EventID         uint        `gorm:"not null;uniqueIndex:idx_order_event_code,priority:1" json:"event_id"`
	Code            string      `gorm:"type:varchar(16);not null;uniqueIndex:idx_order_event_code,priority:2" json:"code"`
	Secret          string      `gorm:"type:varchar(64);not null;index" json:"-"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	RequireApproval bool        `gorm:"not null;default:false" json:"require_approval"`
	TestMode        bool        `gorm:"not null;default:false" json:"testmode"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	Locale          string      `json:"locale"`
	Expires         time.Time   `json:"expires"`
	Total           float64     `gorm:"not null;default:0" json:"total"`
	Comment         string      `gorm:"type:text" json:"comment"`
	SalesChannel    string      `json:"sales_channel"`
	MetaInfo        string      `gorm:"type:text" json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	Event     *Event          `gorm:"foreignKey:EventID" json:"-"`
	Positions []OrderPosition `gorm:"foreignKey:OrderID" json:"positions,omitempty"`
}

type OrderPosition struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	OrderID       uint    `gorm:"not null;index" json:"order_id"`
	PositionID    int     `gorm:"not null" json:"positionid"`
	ItemID        uint    `gorm:"not null;index" json:"item_id"`
	VariationID   *uint   `json:"variation_id,omitempty"`
	SubEventID    *uint   `gorm:"index" json:"subevent_id,omitempty"`
	Price         float64 `gorm:"not null;default:0" json:"price"`
	Secret        string  `gorm:"type:varchar(64);not null" json:"-"`
	AttendeeName  string  `json:"attendee_name"`
	AttendeeEmail string  `json:"attendee_email"`
	Company       string  `json:"company"`
	Street        string  `json:"street"`
	Zipcode       string  `json:"zipcode"`
	City          string  `json:"city"`
	Country       string  `json:"country"`
	State         string  `json:"state"`
	MetaInfo      string  `gorm:"type:text" json:"-"`

	Order     *Order         `gorm:"foreignKey:OrderID" json:"-"`
	Item      *Item          `gorm:"foreignKey:ItemID" json:"-"`
	Variation *ItemVariation `gorm:"foreignKey:VariationID" json:"-"`
	SubEvent  *SubEvent      `gorm:"foreignKey:SubEventID" json:"-"`
	Answers   []Answer       `gorm:"foreignKey:OrderPositionID" json:"answers,omitempty"`
}

type Answer struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	OrderPositionID uint   `gorm:"not null;index" json:"position_id"`
	QuestionID      uint   `gorm:"not null" json:"question_id"`
	Answer          string `gorm:"type:text" json:"answer"`
	File            string `json:"file,omitempty"`

	Question *Question        `gorm:"foreignKey:QuestionID" json:"-"`
	Options  []QuestionOption `gorm:"many2many:answer_options" json:"options,omitempty"`
}

// LogEntry is one audit log line attached to an order.
type LogEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	OrderID    uint           `gorm:"not null;index" json:"order_id"`
	ActionType string         `gorm:"type:varchar(100);not null;index" json:"action_type"`
	Data       datatypes.JSON `json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
}
