package models

import (
	"time"
)

const (
	AlertManualOverride  = "manual_override"
	AlertTableOutOfOrder = "table_out_of_order"
)

// Notification is a staff-facing alert raised by the engine, such as a
// waitlist party that no table can ever seat or a booking left without a
// table when its table broke.
type Notification struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	RestaurantID    uint       `gorm:"not null;index" json:"restaurant_id"`
	Kind            string     `gorm:"type:varchar(32);not null" json:"kind"`
	Title           string     `gorm:"type:varchar(100)" json:"title"`
	Message         string     `gorm:"type:text;not null" json:"message"`
	WaitlistEntryID *uint      `gorm:"index" json:"waitlist_entry_id,omitempty"`
	ReservationID   *uint      `gorm:"index" json:"reservation_id,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
}
