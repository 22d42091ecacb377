package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/notify"
	"qms/clinic-queue/internal/store"
	"qms/clinic-queue/internal/store/memory"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var today = time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

// fakeClock advances one second on every read so call times are ordered.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, 0, len(n.events))
	for _, event := range n.events {
		types = append(types, event.Type)
	}
	return types
}

// duplicateStore reports ErrDuplicateNumber for the first failures inserts.
type duplicateStore struct {
	store.TicketStore
	failures int
	inserts  int
}

func (s *duplicateStore) InsertTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	s.inserts++
	if s.inserts <= s.failures {
		return models.Ticket{}, store.ErrDuplicateNumber
	}
	return s.TicketStore.InsertTicket(ctx, input)
}

var errBackend = errors.New("backend unavailable")

type brokenStore struct {
	store.TicketStore
}

func (brokenStore) MaxNumber(context.Context, time.Time) (int, error) {
	return 0, errBackend
}

func (brokenStore) CountByDate(context.Context, time.Time, time.Time) ([]models.DayCount, error) {
	return nil, errBackend
}

func (brokenStore) CallNext(context.Context, store.TransitionInput) (models.Ticket, bool, error) {
	return models.Ticket{}, false, errBackend
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *recordingNotifier
	hook     *test.Hook
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := memory.NewStore()
	return newFixtureWithStore(t, st, st)
}

func newFixtureWithStore(t *testing.T, ticketStore store.TicketStore, mem *memory.Store) fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	clock := &fakeClock{now: today.Add(8 * time.Hour)}
	notifier := &recordingNotifier{}
	svc := NewService(ticketStore, Options{
		Location: time.UTC,
		Clock:    clock.Now,
		Notifier: notifier,
		Logger:   logger,
	})
	return fixture{svc: svc, store: mem, notifier: notifier, hook: hook}
}

func numbers(tickets []models.Ticket) []int {
	result := make([]int, 0, len(tickets))
	for _, ticket := range tickets {
		result = append(result, ticket.Number)
	}
	return result
}
