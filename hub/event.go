package hub

import (
	"fmt"
	"time"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

// Event types
const (
	EventTableStatusChanged   = "table_status_changed"
	EventReservationCreated   = "reservation_created"
	EventReservationUpdated   = "reservation_updated"
	EventReservationCancelled = "reservation_cancelled"
	EventWaitlistUpdated      = "waitlist_updated"
	EventConnectionLost       = "connection_lost"
)

// Event is one committed change. Payload is always the full entity, so
// clients replace rather than patch.
type Event struct {
	Type         string      `json:"type"`
	RestaurantID uint        `json:"restaurantId"`
	Payload      interface{} `json:"payload"`
	Timestamp    time.Time   `json:"timestamp"`

	// Routing, not serialized.
	TableID   uint   `json:"-"`
	EntityKey string `json:"-"`
	Version   uint64 `json:"-"`
}

func TableEvent(t models.Table, at time.Time) Event {
	return Event{
		Type:         EventTableStatusChanged,
		RestaurantID: t.RestaurantID,
		Payload:      t,
		Timestamp:    at,
		TableID:      t.ID,
		EntityKey:    fmt.Sprintf("table:%d", t.ID),
		Version:      t.Version,
	}
}

// ReservationEvent builds a reservation_* event. eventType must be one of
// the reservation event constants.
func ReservationEvent(eventType string, r models.Reservation, at time.Time) Event {
	ev := Event{
		Type:         eventType,
		RestaurantID: r.RestaurantID,
		Payload:      r,
		Timestamp:    at,
		EntityKey:    fmt.Sprintf("reservation:%d", r.ID),
		Version:      r.Version,
	}
	if r.TableID != nil {
		ev.TableID = *r.TableID
	}
	return ev
}

func WaitlistEvent(e models.WaitlistEntry, at time.Time) Event {
	return Event{
		Type:         EventWaitlistUpdated,
		RestaurantID: e.RestaurantID,
		Payload:      e,
		Timestamp:    at,
		EntityKey:    fmt.Sprintf("waitlist_entry:%d", e.ID),
		Version:      e.Version,
	}
}

// ConnectionLost is the last frame a dropped client receives.
func ConnectionLost(restaurantID uint, reason string, at time.Time) Event {
	return Event{
		Type:         EventConnectionLost,
		RestaurantID: restaurantID,
		Payload:      map[string]string{"reason": reason},
		Timestamp:    at,
	}
}
