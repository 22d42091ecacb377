package queue

import (
	"context"
	"errors"
	"time"

	"qms/clinic-queue/internal/metrics"
	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/notify"
	"qms/clinic-queue/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

const opIssue = "issue"

// Issue creates the next waiting ticket for date. Numbers run from 1 per
// date. A number taken between reading the maximum and inserting is retried
// once; a second clash is reported as a *store.StorageError.
func (s *Service) Issue(ctx context.Context, date time.Time) (models.Ticket, error) {
	date = models.DateOf(date, nil)
	ctx, span := s.startSpan(ctx, "queue.Issue", date)
	defer span.End()

	ticket, err := s.issueOnce(ctx, date)
	if errors.Is(err, store.ErrDuplicateNumber) {
		metrics.IssueRetries.Inc()
		s.logger.WithField("date", models.FormatDate(date)).Warn("ticket number taken, retrying")
		ticket, err = s.issueOnce(ctx, date)
		if errors.Is(err, store.ErrDuplicateNumber) {
			err = &store.StorageError{Op: opIssue, Err: err}
		}
	}
	if err != nil {
		s.fail(span, opIssue, err)
		return models.Ticket{}, err
	}

	span.SetAttributes(attribute.Int("ticket.number", ticket.Number))
	metrics.ObserveOperation(opIssue, metrics.OutcomeOK)
	s.logger.WithFields(ticketFields(ticket)).Info("ticket issued")
	s.publish(ctx, notify.EventTicketIssued, ticket, ticket.CreatedAt)
	return ticket, nil
}

func (s *Service) issueOnce(ctx context.Context, date time.Time) (models.Ticket, error) {
	maxNumber, err := s.store.MaxNumber(ctx, date)
	if err != nil {
		return models.Ticket{}, store.Wrap("max_number", err)
	}
	ticket, err := s.store.InsertTicket(ctx, store.CreateTicketInput{
		Number:    maxNumber + 1,
		Date:      date,
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		return models.Ticket{}, store.Wrap("insert_ticket", err)
	}
	return ticket, nil
}
