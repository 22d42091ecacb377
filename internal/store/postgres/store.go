package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const ticketColumns = `id, queue_number, queue_date, status, called_at, completed_at, called_by, completed_by, created_at, updated_at`

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) MaxNumber(ctx context.Context, date time.Time) (int, error) {
	var maxNumber int
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(queue_number), 0)
		FROM tickets
		WHERE queue_date = $1
	`, date)
	if err := row.Scan(&maxNumber); err != nil {
		return 0, store.Wrap("max_number", err)
	}
	return maxNumber, nil
}

func (s *Store) InsertTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	ticketID := input.TicketID
	if ticketID == "" {
		ticketID = uuid.NewString()
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tickets (id, queue_number, queue_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+ticketColumns,
		ticketID, input.Number, input.Date, models.StatusWaiting, createdAt)
	ticket, err := scanTicket(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Ticket{}, store.ErrDuplicateNumber
		}
		return models.Ticket{}, store.Wrap("insert_ticket", err)
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, store.Wrap("get_ticket", err)
	}
	return ticket, true, nil
}

func (s *Store) CallNext(ctx context.Context, input store.TransitionInput) (models.Ticket, bool, error) {
	return s.transition(ctx, store.ActionCallNext, input, `
		UPDATE tickets
		SET status = $1, called_at = $2, called_by = $3, updated_at = $2
		WHERE id = (
			SELECT id
			FROM tickets
			WHERE queue_date = $4 AND status = $5
			ORDER BY queue_number ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) AND status = $5
		RETURNING `+ticketColumns)
}

// CompleteCurrent blocks on a locked current ticket rather than skipping to an
// older called one.
func (s *Store) CompleteCurrent(ctx context.Context, input store.TransitionInput) (models.Ticket, bool, error) {
	return s.transition(ctx, store.ActionCompleteCurrent, input, `
		UPDATE tickets
		SET status = $1, completed_at = $2, completed_by = $3, updated_at = $2
		WHERE id = (
			SELECT id
			FROM tickets
			WHERE queue_date = $4 AND status = $5
			ORDER BY called_at DESC, queue_number DESC
			LIMIT 1
			FOR UPDATE
		) AND status = $5
		RETURNING `+ticketColumns)
}

// transition runs an update-where-status-matches for action. No matching row
// is reported as (zero, false, nil).
func (s *Store) transition(ctx context.Context, action string, input store.TransitionInput, query string) (models.Ticket, bool, error) {
	from, to, ok := store.TransitionFor(action)
	if !ok {
		return models.Ticket{}, false, store.ErrInvalidState
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, query, to, occurredAt, nullIfEmpty(input.ActorID), input.Date, from)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, store.Wrap(action, err)
	}
	return ticket, true, nil
}

func (s *Store) CurrentlyCalled(ctx context.Context, date time.Time) (models.Ticket, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE queue_date = $1 AND status = $2
		ORDER BY called_at DESC, queue_number DESC
		LIMIT 1
	`, date, models.StatusCalled)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, store.Wrap("currently_called", err)
	}
	return ticket, true, nil
}

func (s *Store) ListWaiting(ctx context.Context, date time.Time) ([]models.Ticket, error) {
	tickets, err := s.listTickets(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE queue_date = $1 AND status = $2
		ORDER BY queue_number ASC
	`, date, models.StatusWaiting)
	return tickets, store.Wrap("list_waiting", err)
}

func (s *Store) ListCompleted(ctx context.Context, date time.Time) ([]models.Ticket, error) {
	tickets, err := s.listTickets(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE queue_date = $1 AND status = $2
		ORDER BY completed_at DESC, queue_number DESC
	`, date, models.StatusCompleted)
	return tickets, store.Wrap("list_completed", err)
}

func (s *Store) CountByDate(ctx context.Context, from, to time.Time) ([]models.DayCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT queue_date,
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COUNT(*) FILTER (WHERE status = 'called'),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM tickets
		WHERE queue_date BETWEEN $1 AND $2
		GROUP BY queue_date
		ORDER BY queue_date ASC
	`, from, to)
	if err != nil {
		return nil, store.Wrap("count_by_date", err)
	}
	defer rows.Close()

	var counts []models.DayCount
	for rows.Next() {
		var count models.DayCount
		if err := rows.Scan(&count.Date, &count.Waiting, &count.Called, &count.Completed); err != nil {
			return nil, store.Wrap("count_by_date", err)
		}
		count.Date = models.DateOf(count.Date, nil)
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("count_by_date", err)
	}
	return counts, nil
}

func (s *Store) listTickets(ctx context.Context, query string, args ...interface{}) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var status string
	var calledAtNull sql.NullTime
	var completedAtNull sql.NullTime
	var calledByNull sql.NullString
	var completedByNull sql.NullString
	if err := row.Scan(&ticket.TicketID, &ticket.Number, &ticket.Date, &status, &calledAtNull, &completedAtNull, &calledByNull, &completedByNull, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return models.Ticket{}, err
	}
	parsed, err := models.ParseStatus(status)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket.Status = parsed
	ticket.Date = models.DateOf(ticket.Date, nil)
	ticket.CalledAt = nullTimePtr(calledAtNull)
	ticket.CompletedAt = nullTimePtr(completedAtNull)
	ticket.CalledBy = nullStringPtr(calledByNull)
	ticket.CompletedBy = nullStringPtr(completedByNull)
	return ticket, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullIfEmpty(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
