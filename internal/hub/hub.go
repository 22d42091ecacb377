// Package hub fans ticket events out to connected display clients.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/notify"

	"github.com/sirupsen/logrus"
)

type Subscription struct {
	// Date limits delivery to events for one queue date; empty means all.
	Date string
	// Today follows the current queue date, checked when each event is sent.
	Today bool
	// Paused clients stay registered but receive nothing.
	Paused bool
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  logrus.FieldLogger
	today   func() string
}

type SubscribeMessage struct {
	Action string `json:"action"`
	Date   string `json:"date"`
}

var _ notify.Notifier = (*Hub)(nil)

// New returns an empty hub. today reports the current queue date for
// subscriptions that follow it; nil uses the UTC date.
func New(logger logrus.FieldLogger, today func() string) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if today == nil {
		today = func() string { return models.FormatDate(time.Now().UTC()) }
	}
	return &Hub{clients: make(map[string]*Client), logger: logger, today: today}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscriptions returns a snapshot of every client's subscription.
func (h *Hub) Subscriptions() []Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]Subscription, 0, len(h.clients))
	for _, client := range h.clients {
		subs = append(subs, client.Subscription)
	}
	return subs
}

// Notify broadcasts event to every matching client. Slow clients drop
// messages instead of blocking the caller.
func (h *Hub) Notify(_ context.Context, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.Broadcast(payload, event.Date)
	return nil
}

func (h *Hub) Broadcast(payload []byte, date string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	today := h.today()
	for _, client := range h.clients {
		if !client.Subscription.matches(date, today) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.WithField("client_id", client.ID).Warn("drop message for slow client")
		}
	}
}

func (s Subscription) matches(date, today string) bool {
	switch {
	case s.Paused:
		return false
	case s.Today:
		return date == today
	default:
		return s.Date == "" || s.Date == date
	}
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
