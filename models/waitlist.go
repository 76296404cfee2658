package models

import "time"

const (
	WaitlistWaiting  = "WAITING"
	WaitlistPromoted = "PROMOTED"
	WaitlistRemoved  = "REMOVED"
)

type WaitlistEntry struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	RestaurantID  uint   `gorm:"not null;index:idx_waitlist_rank" json:"restaurant_id"`
	CustomerRef   string `gorm:"type:varchar(64)" json:"customer_ref"`
	CustomerName  string `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone string `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`
	PartySize     int    `gorm:"not null" json:"party_size"`
	// WindowStart and WindowEnd are optional HH:MM bounds on when the party can be seated.
	WindowStart   string     `gorm:"type:varchar(5)" json:"window_start,omitempty"`
	WindowEnd     string     `gorm:"type:varchar(5)" json:"window_end,omitempty"`
	Priority      int        `gorm:"not null;default:0;index:idx_waitlist_rank" json:"priority"`
	Status        string     `gorm:"type:varchar(20);not null;default:'WAITING';index:idx_waitlist_rank" json:"status"`
	Reason        string     `gorm:"type:varchar(255)" json:"reason,omitempty"`
	EnqueuedAt    time.Time  `gorm:"not null;index:idx_waitlist_rank" json:"enqueued_at"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`
	ReservationID *uint      `json:"reservation_id,omitempty"`
	// Position is the 1-based rank among waiting entries. Computed, never stored.
	Position  int       `gorm:"-" json:"position,omitempty"`
	Version   uint64    `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Outranks orders entries by priority desc, then enqueue time asc, then id.
func (w WaitlistEntry) Outranks(o WaitlistEntry) bool {
	if w.Priority != o.Priority {
		return w.Priority > o.Priority
	}
	if !w.EnqueuedAt.Equal(o.EnqueuedAt) {
		return w.EnqueuedAt.Before(o.EnqueuedAt)
	}
	return w.ID < o.ID
}
