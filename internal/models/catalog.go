package models

import "time"

// Event is an event series. Follow-up bookings are only possible when HasSubEvents is set.
type Event struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Slug         string    `gorm:"not null;uniqueIndex" json:"slug"`
	Name         string    `gorm:"not null" json:"name"`
	HasSubEvents bool      `gorm:"not null;default:false" json:"has_subevents"`
	Timezone     string    `gorm:"not null;default:'UTC'" json:"timezone"`
	Locale       string    `gorm:"not null;default:'en'" json:"locale"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Location falls back to UTC for unknown zone names.
func (e *Event) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SubEvent is one dated occurrence of a series.
type SubEvent struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	EventID  uint      `gorm:"not null;index:idx_subevent_event_date,priority:1" json:"event_id"`
	Name     string    `json:"name"`
	DateFrom time.Time `gorm:"not null;index:idx_subevent_event_date,priority:2" json:"date_from"`
	Active   bool      `gorm:"not null;default:true" json:"active"`

	Event *Event `gorm:"foreignKey:EventID" json:"-"`
}

type Item struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	EventID      uint   `gorm:"not null;index" json:"event_id"`
	Name         string `gorm:"not null" json:"name"`
	InternalName string `json:"internal_name,omitempty"`

	Variations []ItemVariation `gorm:"foreignKey:ItemID" json:"variations,omitempty"`
}

// StableName is the name used to match products across series.
func (i *Item) StableName() string {
	if i.InternalName != "" {
		return i.InternalName
	}
	return i.Name
}

type ItemVariation struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	ItemID uint   `gorm:"not null;index" json:"item_id"`
	Value  string `gorm:"not null" json:"value"`
}

// Quota limits inventory for its items on one sub-event. A nil Size is unlimited.
type Quota struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EventID    uint   `gorm:"not null;index" json:"event_id"`
	SubEventID *uint  `gorm:"index" json:"subevent_id"`
	Name       string `json:"name"`
	Size       *int   `json:"size"`

	Items []QuotaItem `gorm:"foreignKey:QuotaID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type QuotaItem struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	QuotaID     uint  `gorm:"not null;index" json:"quota_id"`
	ItemID      uint  `gorm:"not null;index" json:"item_id"`
	VariationID *uint `json:"variation_id,omitempty"`
}

type Question struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EventID    uint   `gorm:"not null;index:idx_question_identifier,priority:1" json:"event_id"`
	Identifier string `gorm:"not null;index:idx_question_identifier,priority:2" json:"identifier"`
	Question   string `json:"question"`

	Options []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

type QuestionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Identifier string `gorm:"not null" json:"identifier"`
	Answer     string `json:"answer"`
}

// EventSetting is one entry of the per-event key/value settings store.
type EventSetting struct {
	EventID uint   `gorm:"primaryKey" json:"event_id"`
	Key     string `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value   string `gorm:"type:text" json:"value"`
}
