package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
)

const (
	NoticeConfirmation = "confirmation"
	NoticeReminder     = "reminder"
	NoticeCancellation = "cancellation"
)

// Notice is a customer-facing message handed to the notification service.
type Notice struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	RestaurantID  uint      `json:"restaurant_id"`
	ReservationID uint      `json:"reservation_id"`
	CustomerRef   string    `json:"customer_ref,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	PartySize     int       `json:"party_size"`
	TableID       *uint     `json:"table_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func noticeFor(kind string, r models.Reservation, at time.Time) Notice {
	return Notice{
		ID:            uuid.NewString(),
		Kind:          kind,
		RestaurantID:  r.RestaurantID,
		ReservationID: r.ID,
		CustomerRef:   r.CustomerRef,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Date:          r.Date,
		Time:          r.Time,
		PartySize:     r.PartySize,
		TableID:       r.TableID,
		Reason:        r.CancelReason,
		CreatedAt:     at,
	}
}

// Notifier delivers notices. Implementations must not block the caller;
// delivery is fire-and-forget.
type Notifier interface {
	Notify(n Notice)
}

// LogNotifier only logs. Used when no broker is configured.
type LogNotifier struct {
	Log *logrus.Logger
}

func (n LogNotifier) Notify(msg Notice) {
	if n.Log == nil {
		return
	}
	n.Log.WithFields(logrus.Fields{
		"kind":        msg.Kind,
		"reservation": msg.ReservationID,
		"customer":    msg.CustomerName,
	}).Info("notification (no broker configured)")
}

const notifierBuffer = 256

// AMQPNotifier publishes notices as persistent JSON messages on a durable
// RabbitMQ queue. A single worker owns the connection and redials with
// backoff when it breaks.
type AMQPNotifier struct {
	url   string
	queue string
	buf   chan Notice
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	log   *logrus.Logger
}

func NewAMQPNotifier(url, queue string, log *logrus.Logger) *AMQPNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AMQPNotifier{
		url:   url,
		queue: queue,
		buf:   make(chan Notice, notifierBuffer),
		done:  make(chan struct{}),
		log:   log,
	}
}

func (n *AMQPNotifier) Notify(msg Notice) {
	select {
	case n.buf <- msg:
	default:
		n.log.WithFields(logrus.Fields{
			"kind":        msg.Kind,
			"reservation": msg.ReservationID,
		}).Warn("notification buffer full, dropping notice")
	}
}

func (n *AMQPNotifier) Start() {
	n.wg.Add(1)
	go n.run()
}

func (n *AMQPNotifier) Close() {
	n.once.Do(func() { close(n.done) })
	n.wg.Wait()
}

func (n *AMQPNotifier) run() {
	defer n.wg.Done()

	backoff := time.Second
	var pending *Notice
	for {
		conn, err := amqp.Dial(n.url)
		if err != nil {
			n.log.WithError(err).Warnf("rabbitmq: dial failed, retrying in %s", backoff)
			select {
			case <-n.done:
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		pending, err = n.serve(conn, pending)
		_ = conn.Close()
		if err == nil {
			return
		}
		n.log.WithError(err).Warn("rabbitmq: publisher stopped, reconnecting")
	}
}

// serve publishes until done is closed or the channel fails. A notice that
// could not be published is handed back so it is retried after redial.
func (n *AMQPNotifier) serve(conn *amqp.Connection, pending *Notice) (*Notice, error) {
	ch, err := conn.Channel()
	if err != nil {
		return pending, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return pending, fmt.Errorf("queue declare: %w", err)
	}

	if pending != nil {
		if err := n.publish(ch, *pending); err != nil {
			return pending, err
		}
	}

	for {
		select {
		case <-n.done:
			return nil, nil
		case msg := <-n.buf:
			if err := n.publish(ch, msg); err != nil {
				return &msg, err
			}
		}
	}
}

func (n *AMQPNotifier) publish(ch *amqp.Channel, msg Notice) error {
	body, err := json.Marshal(msg)
	if err != nil {
		n.log.WithError(err).Error("rabbitmq: marshal notice")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Kind,
		Timestamp:    msg.CreatedAt.UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Kind, err)
	}
	return nil
}
