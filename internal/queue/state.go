package queue

import (
	"context"
	"time"

	"qms/clinic-queue/internal/metrics"
	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/notify"
	"qms/clinic-queue/internal/store"

	"github.com/sirupsen/logrus"
)

// CallNext moves the lowest numbered waiting ticket of date to called. It
// reports false when nobody is waiting.
func (s *Service) CallNext(ctx context.Context, date time.Time, actorID string) (models.Ticket, bool, error) {
	return s.transition(ctx, store.ActionCallNext, date, actorID, notify.EventTicketCalled, s.store.CallNext)
}

// CompleteCurrent moves the most recently called ticket of date to completed.
// It reports false when no ticket is called.
func (s *Service) CompleteCurrent(ctx context.Context, date time.Time, actorID string) (models.Ticket, bool, error) {
	return s.transition(ctx, store.ActionCompleteCurrent, date, actorID, notify.EventTicketCompleted, s.store.CompleteCurrent)
}

// Dispatch runs a named staff action.
func (s *Service) Dispatch(ctx context.Context, action string, date time.Time, actorID string) (models.Ticket, bool, error) {
	switch action {
	case store.ActionCallNext:
		return s.CallNext(ctx, date, actorID)
	case store.ActionCompleteCurrent:
		return s.CompleteCurrent(ctx, date, actorID)
	default:
		return models.Ticket{}, false, ErrUnknownAction
	}
}

type transitionFunc func(ctx context.Context, input store.TransitionInput) (models.Ticket, bool, error)

func (s *Service) transition(ctx context.Context, action string, date time.Time, actorID, eventType string, apply transitionFunc) (models.Ticket, bool, error) {
	date = models.DateOf(date, nil)
	ctx, span := s.startSpan(ctx, "queue."+action, date)
	defer span.End()

	occurredAt := s.clock().UTC()
	ticket, ok, err := apply(ctx, store.TransitionInput{Date: date, ActorID: actorID, OccurredAt: occurredAt})
	if err != nil {
		err = store.Wrap(action, err)
		s.fail(span, action, err)
		return models.Ticket{}, false, err
	}
	if !ok {
		metrics.ObserveOperation(action, metrics.OutcomeEmpty)
		s.logger.WithFields(logrus.Fields{"action": action, "date": models.FormatDate(date)}).Debug("no ticket to transition")
		return models.Ticket{}, false, nil
	}

	metrics.ObserveOperation(action, metrics.OutcomeOK)
	s.logger.WithFields(ticketFields(ticket)).WithFields(logrus.Fields{
		"action": action,
		"actor":  actorID,
		"status": ticket.Status,
	}).Info("ticket transitioned")
	s.publish(ctx, eventType, ticket, occurredAt)
	return ticket, true, nil
}

// CurrentlyCalled returns the called ticket with the latest call time.
func (s *Service) CurrentlyCalled(ctx context.Context, date time.Time) (models.Ticket, bool, error) {
	date = models.DateOf(date, nil)
	ctx, span := s.startSpan(ctx, "queue.CurrentlyCalled", date)
	defer span.End()

	ticket, ok, err := s.store.CurrentlyCalled(ctx, date)
	if err != nil {
		err = store.Wrap("currently_called", err)
		s.fail(span, "currently_called", err)
		return models.Ticket{}, false, err
	}
	return ticket, ok, nil
}

// WaitingList returns waiting tickets in ascending number order.
func (s *Service) WaitingList(ctx context.Context, date time.Time) ([]models.Ticket, error) {
	date = models.DateOf(date, nil)
	ctx, span := s.startSpan(ctx, "queue.WaitingList", date)
	defer span.End()

	tickets, err := s.store.ListWaiting(ctx, date)
	if err != nil {
		err = store.Wrap("list_waiting", err)
		s.fail(span, "list_waiting", err)
		return nil, err
	}
	return tickets, nil
}

// CompletedList returns completed tickets, latest completion first.
func (s *Service) CompletedList(ctx context.Context, date time.Time) ([]models.Ticket, error) {
	date = models.DateOf(date, nil)
	ctx, span := s.startSpan(ctx, "queue.CompletedList", date)
	defer span.End()

	tickets, err := s.store.ListCompleted(ctx, date)
	if err != nil {
		err = store.Wrap("list_completed", err)
		s.fail(span, "list_completed", err)
		return nil, err
	}
	return tickets, nil
}
