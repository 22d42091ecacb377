// Package notify publishes ticket lifecycle events for displays and other
// listeners.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"qms/clinic-queue/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	EventTicketIssued    = "ticket.issued"
	EventTicketCalled    = "ticket.called"
	EventTicketCompleted = "ticket.completed"
)

const DefaultChannel = "clinic-queue.events"

type Event struct {
	Type       string        `json:"type"`
	TicketID   string        `json:"ticket_id"`
	Number     int           `json:"number"`
	Date       string        `json:"date"`
	Status     models.Status `json:"status"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEvent describes ticket after a lifecycle step of the given type.
func NewEvent(eventType string, ticket models.Ticket, occurredAt time.Time) Event {
	return Event{
		Type:       eventType,
		TicketID:   ticket.TicketID,
		Number:     ticket.Number,
		Date:       models.FormatDate(ticket.Date),
		Status:     ticket.Status,
		OccurredAt: occurredAt.UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

type RedisPublisher struct {
	client  redis.Cmdable
	channel string
}

func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Multi delivers each event to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
