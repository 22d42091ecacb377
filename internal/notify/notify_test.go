package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"qms/clinic-queue/internal/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherPublishesEvent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	calledAt := time.Date(2026, 2, 3, 9, 15, 0, 0, time.UTC)
	ticket := models.Ticket{
		TicketID: "ticket-7",
		Number:   7,
		Date:     time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		Status:   models.StatusCalled,
	}
	event := NewEvent(EventTicketCalled, ticket, calledAt)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish("clinic.events", payload).SetVal(1)

	publisher := NewRedisPublisher(db, "clinic.events")
	require.NoError(t, publisher.Notify(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "ticket.called", decoded["type"])
	assert.Equal(t, "2026-02-03", decoded["date"])
	assert.Equal(t, float64(7), decoded["number"])
}

func TestRedisPublisherReturnsPublishError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	event := NewEvent(EventTicketIssued, models.Ticket{TicketID: "t", Number: 1, Status: models.StatusWaiting}, time.Unix(0, 0))
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	mock.ExpectPublish(DefaultChannel, payload).SetErr(errors.New("connection refused"))

	err = NewRedisPublisher(db, "").Notify(context.Background(), event)
	assert.EqualError(t, err, "connection refused")
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), Event{}))
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(context.Context, Event) error {
	s.calls++
	return s.err
}

func TestMultiNotifiesAll(t *testing.T) {
	failing := &stubNotifier{err: errors.New("boom")}
	ok := &stubNotifier{}

	err := Multi{failing, ok}.Notify(context.Background(), Event{})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
	assert.NoError(t, Multi{ok}.Notify(context.Background(), Event{}))
}
