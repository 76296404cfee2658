// Package hub is the synchronization bus between the engine and connected
// staff clients. Each client owns one bounded queue; publishing never blocks,
// and a client whose queue is full is dropped so that it refetches state.
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const DefaultQueueSize = 64

// Client is one subscriber. Read Events until Done is closed.
type Client struct {
	ID           string
	RestaurantID uint

	send        chan Event
	done        chan struct{}
	restaurants map[uint]struct{}
	tables      map[uint]struct{}
	floor       bool
	lastVersion map[string]uint64
	dropReason  string
}

func (c *Client) Events() <-chan Event { return c.send }
func (c *Client) Done() <-chan struct{} { return c.done }

// DropReason is set when the hub dropped the client, empty on Unsubscribe.
func (c *Client) DropReason() string { return c.dropReason }

// wants limits delivery to the client's restaurants. Inside them the client
// gets everything while it follows the floor, otherwise only the events of
// its subscribed tables.
func (c *Client) wants(ev Event) bool {
	if _, ok := c.restaurants[ev.RestaurantID]; !ok {
		return false
	}
	if c.floor {
		return true
	}
	if ev.TableID == 0 {
		return false
	}
	_, ok := c.tables[ev.TableID]
	return ok
}

// Relay forwards locally published events to other instances.
type Relay interface {
	Forward(ev Event)
}

type Hub struct {
	mu        sync.Mutex
	clients   map[string]*Client
	queueSize int
	relay     Relay
	log       *logrus.Logger
}

func NewHub(queueSize int, log *logrus.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:   make(map[string]*Client),
		queueSize: queueSize,
		log:       log,
	}
}

func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// client returns the registered client, creating it if needed. Caller holds mu.
func (h *Hub) client(clientID string) *Client {
	c, ok := h.clients[clientID]
	if !ok {
		c = &Client{
			ID:          clientID,
			send:        make(chan Event, h.queueSize),
			done:        make(chan struct{}),
			restaurants: make(map[uint]struct{}),
			tables:      make(map[uint]struct{}),
			lastVersion: make(map[string]uint64),
		}
		h.clients[clientID] = c
	}
	return c
}

// Subscribe attaches the client to every event of a restaurant.
func (h *Hub) Subscribe(clientID string, restaurantID uint) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.client(clientID)
	c.restaurants[restaurantID] = struct{}{}
	c.floor = true
	if c.RestaurantID == 0 {
		c.RestaurantID = restaurantID
	}
	return c
}

// SubscribeTable attaches a subscribed client to the events of a single
// table. It returns nil for a client the hub does not know, including one it
// already dropped.
func (h *Hub) SubscribeTable(clientID string, tableID uint) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return nil
	}
	c.tables[tableID] = struct{}{}
	return c
}

// FollowFloor switches a subscribed client between every event of its
// restaurants and the events of its subscribed tables only.
func (h *Hub) FollowFloor(clientID string, follow bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		c.floor = follow
	}
}

func (h *Hub) UnsubscribeTable(clientID string, tableID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		delete(c.tables, tableID)
	}
}

// Unsubscribe removes the client entirely and closes its Done channel.
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		h.drop(c, "")
	}
}

// drop removes a client. Caller holds mu.
func (h *Hub) drop(c *Client, reason string) {
	delete(h.clients, c.ID)
	c.dropReason = reason
	close(c.done)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish delivers ev to local subscribers and hands it to the relay.
func (h *Hub) Publish(restaurantID uint, ev Event) {
	ev.RestaurantID = restaurantID
	relay := h.dispatch(ev)
	if relay != nil {
		relay.Forward(ev)
	}
}

// Dispatch delivers ev to local subscribers only. Used for events that
// arrive from other instances.
func (h *Hub) Dispatch(ev Event) {
	h.dispatch(ev)
}

func (h *Hub) dispatch(ev Event) Relay {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		if ev.EntityKey != "" {
			if last, seen := c.lastVersion[ev.EntityKey]; seen && ev.Version <= last {
				continue
			}
		}
		select {
		case c.send <- ev:
			if ev.EntityKey != "" {
				c.lastVersion[ev.EntityKey] = ev.Version
			}
			delivered++
		default:
			h.log.WithFields(logrus.Fields{
				"client": c.ID,
				"event":  ev.Type,
			}).Warn("subscriber queue full, dropping connection")
			h.drop(c, "subscriber queue overflow")
		}
	}

	h.log.WithFields(logrus.Fields{
		"event":      ev.Type,
		"restaurant": ev.RestaurantID,
		"entity":     ev.EntityKey,
		"version":    ev.Version,
		"clients":    delivered,
	}).Debug("event published")
	return h.relay
}
