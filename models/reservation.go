package models

import "time"

const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationArrived   = "ARRIVED"
	ReservationSeated    = "SEATED"
	ReservationCompleted = "COMPLETED"
	ReservationCancelled = "CANCELLED"
)

// BlockingStatuses hold a table for their interval.
var BlockingStatuses = []string{ReservationConfirmed, ReservationArrived, ReservationSeated}

var ReservationStatuses = []string{
	ReservationPending, ReservationConfirmed, ReservationArrived,
	ReservationSeated, ReservationCompleted, ReservationCancelled,
}

const (
	SourcePhone    = "phone"
	SourceWeb      = "web"
	SourceWalkIn   = "walk_in"
	SourceWaitlist = "waitlist"
)

type Reservation struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	RestaurantID    uint              `gorm:"not null;index:idx_reservations_restaurant_date" json:"restaurant_id"`
	CustomerRef     string            `gorm:"type:varchar(64);index" json:"customer_ref"`
	CustomerName    string            `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone   string            `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`
	Date            string            `gorm:"type:varchar(10);not null;index:idx_reservations_restaurant_date" json:"date"`
	Time            string            `gorm:"type:varchar(5);not null" json:"time"`
	PartySize       int               `gorm:"not null" json:"party_size"`
	DurationMinutes int               `gorm:"not null;default:120" json:"duration_minutes"`
	TableID         *uint             `gorm:"index" json:"table_id"`
	Status          string            `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	SpecialRequests map[string]string `gorm:"serializer:json;type:text" json:"special_requests,omitempty"`
	Priority        int               `gorm:"not null;default:0" json:"priority"`
	Source          string            `gorm:"type:varchar(20);not null;default:'phone'" json:"source"`
	WaitlistEntryID *uint             `json:"waitlist_entry_id,omitempty"`
	ArrivedAt       *time.Time        `json:"arrived_at,omitempty"`
	SeatedAt        *time.Time        `json:"seated_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason    string            `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	ReminderSentAt  *time.Time        `json:"reminder_sent_at,omitempty"`
	Version         uint64            `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func IsReservationStatus(s string) bool {
	for _, st := range ReservationStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Active is true until the reservation is completed or cancelled.
func (r Reservation) Active() bool {
	return r.Status != ReservationCompleted && r.Status != ReservationCancelled
}

// Blocking is true when the reservation holds its table for its interval.
func (r Reservation) Blocking() bool {
	for _, st := range BlockingStatuses {
		if r.Status == st {
			return true
		}
	}
	return false
}
