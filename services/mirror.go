package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

const (
	TableStatusSubject      = "tables.status"
	EventTableStatusChanged = "table.status.changed"
)

// TableStatusEvent is the integration feed other services consume to learn
// about table availability.
type TableStatusEvent struct {
	EventType            string    `json:"event_type"`
	RestaurantID         uint      `json:"restaurant_id"`
	TableID              uint      `json:"table_id"`
	TableNumber          int       `json:"table_number"`
	Status               string    `json:"status"`
	PreviousStatus       string    `json:"previous_status,omitempty"`
	CurrentReservationID *uint     `json:"current_reservation_id,omitempty"`
	Version              uint64    `json:"version"`
	Reason               string    `json:"reason,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// TableMirror receives committed table changes. Must not block.
type TableMirror interface {
	TableChanged(t models.Table, previous, reason string)
}

type NATSMirror struct {
	conn    *nats.Conn
	subject string
	log     *logrus.Logger
}

func NewNATSMirror(url, subject string, log *logrus.Logger) (*NATSMirror, error) {
	if subject == "" {
		subject = TableStatusSubject
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	conn, err := nats.Connect(url,
		nats.Name("reservation-engine"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSMirror{conn: conn, subject: subject, log: log}, nil
}

func tableStatusEvent(t models.Table, previous, reason string) TableStatusEvent {
	return TableStatusEvent{
		EventType:            EventTableStatusChanged,
		RestaurantID:         t.RestaurantID,
		TableID:              t.ID,
		TableNumber:          t.Number,
		Status:               t.Status,
		PreviousStatus:       previous,
		CurrentReservationID: t.CurrentReservationID,
		Version:              t.Version,
		Reason:               reason,
		OccurredAt:           t.UpdatedAt.UTC(),
	}
}

func (m *NATSMirror) TableChanged(t models.Table, previous, reason string) {
	payload, err := json.Marshal(tableStatusEvent(t, previous, reason))
	if err != nil {
		m.log.WithError(err).WithField("table", t.ID).Error("cannot marshal table status event")
		return
	}
	if err := m.conn.Publish(m.subject, payload); err != nil {
		m.log.WithError(err).WithField("table", t.ID).Error("cannot publish table status event")
	}
}

func (m *NATSMirror) Close() error {
	return m.conn.Drain()
}
