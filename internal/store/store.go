package store

import (
	"context"
	"time"

	"qms/clinic-queue/internal/models"
)

type CreateTicketInput struct {
	TicketID  string
	Number    int
	Date      time.Time
	CreatedAt time.Time
}

type TransitionInput struct {
	Date       time.Time
	ActorID    string
	OccurredAt time.Time
}

// TicketStore persists tickets. Every method is a single atomic episode;
// transitions only touch rows whose current status is the transition source.
type TicketStore interface {
	MaxNumber(ctx context.Context, date time.Time) (int, error)
	InsertTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, bool, error)
	CallNext(ctx context.Context, input TransitionInput) (models.Ticket, bool, error)
	CompleteCurrent(ctx context.Context, input TransitionInput) (models.Ticket, bool, error)
	CurrentlyCalled(ctx context.Context, date time.Time) (models.Ticket, bool, error)
	ListWaiting(ctx context.Context, date time.Time) ([]models.Ticket, error)
	ListCompleted(ctx context.Context, date time.Time) ([]models.Ticket, error)
	CountByDate(ctx context.Context, from, to time.Time) ([]models.DayCount, error)
}

type CreateStaffInput struct {
	Email    string
	Name     string
	Password string
}

type StaffStore interface {
	CreateStaff(ctx context.Context, input CreateStaffInput) (models.Staff, error)
	Login(ctx context.Context, email, password string, ttl time.Duration) (models.Session, models.Staff, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, models.Staff, error)
}

type Store interface {
	TicketStore
	StaffStore
}
