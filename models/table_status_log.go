package models

import (
	"time"
)

// TableStatusLog records every table transition.
type TableStatusLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RestaurantID  uint      `gorm:"not null;index" json:"restaurant_id"`
	TableID       uint      `gorm:"not null;index" json:"table_id"`
	FromStatus    string    `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus      string    `gorm:"type:varchar(20);not null" json:"to_status"`
	ReservationID *uint     `json:"reservation_id,omitempty"`
	ActorID       uint      `json:"actor_id"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
	Version       uint64    `gorm:"not null" json:"version"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}
