package models

import "time"

// ItemConfig enables follow-up scheduling for one item. A missing row means the feature is off.
type ItemConfig struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ItemID        uint      `gorm:"not null;uniqueIndex" json:"item_id"`
	Days          int       `gorm:"not null" json:"days"`
	MaxDays       *int      `json:"max_days"`
	TargetEventID *uint     `json:"event"`
	SecondItemID  *uint     `json:"second_item"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Item        *Item  `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`
	TargetEvent *Event `gorm:"foreignKey:TargetEventID;constraint:OnDelete:CASCADE" json:"-"`
	SecondItem  *Item  `gorm:"foreignKey:SecondItemID;constraint:OnDelete:SET NULL" json:"-"`
}

// LinkedOrderPosition ties an origin position to its generated follow-up.
// Both sides are unique, so an origin has at most one follow-up and vice versa.
type LinkedOrderPosition struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BasePositionID  uint      `gorm:"not null;uniqueIndex" json:"base_position_id"`
	ChildPositionID uint      `gorm:"not null;uniqueIndex" json:"child_position_id"`
	CreatedAt       time.Time `json:"created_at"`

	BasePosition  *OrderPosition `gorm:"foreignKey:BasePositionID;constraint:OnDelete:CASCADE" json:"-"`
	ChildPosition *OrderPosition `gorm:"foreignKey:ChildPositionID;constraint:OnDelete:CASCADE" json:"-"`
}

// AllModels is the migration set, in dependency order.
func AllModels() []any {
	return []any{
		&Event{}, &SubEvent{}, &Item{}, &ItemVariation{},
		&Quota{}, &QuotaItem{}, &Question{}, &QuestionOption{},
		&Order{}, &OrderPosition{}, &Answer{}, &LogEntry{},
		&EventSetting{}, &ItemConfig{}, &LinkedOrderPosition{},
	}
}

// Availability is the verdict of the capacity check for one product on one occurrence.
type Availability int

const (
	AvailabilityOK Availability = iota
	AvailabilitySoldOut
	// AvailabilityUnknown means no quota applies. Only AvailabilityOK is bookable.
	AvailabilityUnknown
)

func (a Availability) String() string {
	switch a {
	case AvailabilityOK:
		return "ok"
	case AvailabilitySoldOut:
		return "sold_out"
	default:
		return "unknown"
	}
}
