package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultRelayChannel = "restaurant:events"

// envelope is the wire form of an Event between instances. It keeps the
// routing fields that Event does not serialize.
type envelope struct {
	Origin       string          `json:"origin"`
	Type         string          `json:"type"`
	RestaurantID uint            `json:"restaurantId"`
	TableID      uint            `json:"tableId,omitempty"`
	EntityKey    string          `json:"entityKey,omitempty"`
	Version      uint64          `json:"version,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	Timestamp    time.Time       `json:"timestamp"`
}

func encodeEnvelope(origin string, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(envelope{
		Origin:       origin,
		Type:         ev.Type,
		RestaurantID: ev.RestaurantID,
		TableID:      ev.TableID,
		EntityKey:    ev.EntityKey,
		Version:      ev.Version,
		Payload:      payload,
		Timestamp:    ev.Timestamp,
	})
}

func decodeEnvelope(data []byte) (string, Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", Event{}, err
	}
	return env.Origin, Event{
		Type:         env.Type,
		RestaurantID: env.RestaurantID,
		Payload:      env.Payload,
		Timestamp:    env.Timestamp,
		TableID:      env.TableID,
		EntityKey:    env.EntityKey,
		Version:      env.Version,
	}, nil
}

// RedisRelay fans bus events out to every instance through Redis pub/sub.
// Forward never blocks; when the outbound buffer is full the event is only
// delivered locally.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	instance string
	hub      *Hub
	out      chan Event
	log      *logrus.Logger
}

func NewRedisRelay(client *redis.Client, channel string, h *Hub, log *logrus.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisRelay{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
		hub:      h,
		out:      make(chan Event, 256),
		log:      log,
	}
}

func (r *RedisRelay) Forward(ev Event) {
	select {
	case r.out <- ev:
	default:
		r.log.WithField("event", ev.Type).Warn("redis relay buffer full, event not forwarded")
	}
}

// Start attaches the relay to the hub and runs the publish and subscribe
// loops until ctx is cancelled.
func (r *RedisRelay) Start(ctx context.Context) {
	r.hub.SetRelay(r)

	sub := r.client.Subscribe(ctx, r.channel)
	go r.receive(ctx, sub)
	go r.send(ctx)

	r.log.WithFields(logrus.Fields{
		"channel":  r.channel,
		"instance": r.instance,
	}).Info("redis relay started")
}

func (r *RedisRelay) send(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.out:
			data, err := encodeEnvelope(r.instance, ev)
			if err != nil {
				r.log.WithError(err).Error("redis relay: encode event")
				continue
			}
			if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
				r.log.WithError(err).Warn("redis relay: publish failed")
			}
		}
	}
}

func (r *RedisRelay) receive(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			origin, ev, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				r.log.WithError(err).Warn("redis relay: malformed message")
				continue
			}
			if origin == r.instance {
				continue
			}
			r.hub.Dispatch(ev)
		}
	}
}
