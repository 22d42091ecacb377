// Package queue implements ticket issuing, the call/complete lifecycle and
// count reports for a single clinic queue. Every operation takes the queue
// date explicitly; Today resolves it from the clinic clock and timezone.
package queue

import (
	"context"
	"time"

	"qms/clinic-queue/internal/metrics"
	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/notify"
	"qms/clinic-queue/internal/store"
	"qms/clinic-queue/internal/telemetry"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Clock func() time.Time

type Options struct {
	Location *time.Location
	Clock    Clock
	Notifier notify.Notifier
	Logger   logrus.FieldLogger
	Tracer   trace.Tracer
}

type Service struct {
	store    store.TicketStore
	loc      *time.Location
	clock    Clock
	notifier notify.Notifier
	logger   logrus.FieldLogger
	tracer   trace.Tracer
}

func NewService(st store.TicketStore, opts Options) *Service {
	svc := &Service{
		store:    st,
		loc:      opts.Location,
		clock:    opts.Clock,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}
	if svc.notifier == nil {
		svc.notifier = notify.Nop{}
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer(telemetry.TracerName)
	}
	return svc
}

// Now returns the current instant in the clinic timezone.
func (s *Service) Now() time.Time {
	return s.clock().In(s.loc)
}

// Today returns the clinic's current calendar date.
func (s *Service) Today() time.Time {
	return models.DateOf(s.clock(), s.loc)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) startSpan(ctx context.Context, name string, date time.Time) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("queue.date", models.FormatDate(date))))
}

func (s *Service) fail(span trace.Span, operation string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.ObserveOperation(operation, metrics.OutcomeError)
}

// publish sends a lifecycle event. Failures are logged and counted only.
func (s *Service) publish(ctx context.Context, eventType string, ticket models.Ticket, occurredAt time.Time) {
	if err := s.notifier.Notify(ctx, notify.NewEvent(eventType, ticket, occurredAt)); err != nil {
		metrics.NotifyFailures.WithLabelValues(eventType).Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":     eventType,
			"ticket_id": ticket.TicketID,
		}).Warn("publish event failed")
	}
}

func ticketFields(ticket models.Ticket) logrus.Fields {
	return logrus.Fields{
		"ticket_id": ticket.TicketID,
		"number":    ticket.Number,
		"date":      models.FormatDate(ticket.Date),
	}
}
