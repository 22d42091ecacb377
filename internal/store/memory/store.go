// Package memory keeps tickets and staff in process memory. It enforces the
// same unique (date, number) key and status guards as the Postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type ticketKey struct {
	date   string
	number int
}

type staffRecord struct {
	staff        models.Staff
	passwordHash []byte
}

type Store struct {
	mu       sync.Mutex
	tickets  map[string]*models.Ticket
	numbers  map[ticketKey]string
	staff    map[string]*staffRecord
	sessions map[string]models.Session
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		tickets:  make(map[string]*models.Ticket),
		numbers:  make(map[ticketKey]string),
		staff:    make(map[string]*staffRecord),
		sessions: make(map[string]models.Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) MaxNumber(_ context.Context, date time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxNumber := 0
	for _, ticket := range s.tickets {
		if ticket.Date.Equal(date) && ticket.Number > maxNumber {
			maxNumber = ticket.Number
		}
	}
	return maxNumber, nil
}

func (s *Store) InsertTicket(_ context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ticketKey{date: models.FormatDate(input.Date), number: input.Number}
	if _, exists := s.numbers[key]; exists {
		return models.Ticket{}, store.ErrDuplicateNumber
	}

	ticketID := input.TicketID
	if ticketID == "" {
		ticketID = uuid.NewString()
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	ticket := &models.Ticket{
		TicketID:  ticketID,
		Number:    input.Number,
		Date:      input.Date,
		Status:    models.StatusWaiting,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	s.tickets[ticketID] = ticket
	s.numbers[key] = ticketID
	return *ticket, nil
}

func (s *Store) GetTicket(_ context.Context, ticketID string) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, false, nil
	}
	return *ticket, true, nil
}

func (s *Store) CallNext(_ context.Context, input store.TransitionInput) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiting := s.filter(input.Date, models.StatusWaiting)
	if len(waiting) == 0 {
		return models.Ticket{}, false, nil
	}
	sortByNumber(waiting)
	ticket := waiting[0]
	if !store.ValidTransition(store.ActionCallNext, ticket.Status) {
		return models.Ticket{}, false, store.ErrInvalidState
	}

	occurredAt := s.occurredAt(input)
	ticket.Status = models.StatusCalled
	ticket.CalledAt = &occurredAt
	ticket.CalledBy = actorPtr(input.ActorID)
	ticket.UpdatedAt = occurredAt
	return *ticket, true, nil
}

func (s *Store) CompleteCurrent(_ context.Context, input store.TransitionInput) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.currentlyCalled(input.Date)
	if !ok {
		return models.Ticket{}, false, nil
	}
	if !store.ValidTransition(store.ActionCompleteCurrent, ticket.Status) {
		return models.Ticket{}, false, store.ErrInvalidState
	}

	occurredAt := s.occurredAt(input)
	ticket.Status = models.StatusCompleted
	ticket.CompletedAt = &occurredAt
	ticket.CompletedBy = actorPtr(input.ActorID)
	ticket.UpdatedAt = occurredAt
	return *ticket, true, nil
}

func (s *Store) CurrentlyCalled(_ context.Context, date time.Time) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.currentlyCalled(date)
	if !ok {
		return models.Ticket{}, false, nil
	}
	return *ticket, true, nil
}

func (s *Store) ListWaiting(_ context.Context, date time.Time) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiting := s.filter(date, models.StatusWaiting)
	sortByNumber(waiting)
	return copyTickets(waiting), nil
}

func (s *Store) ListCompleted(_ context.Context, date time.Time) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := s.filter(date, models.StatusCompleted)
	sort.Slice(completed, func(i, j int) bool {
		a, b := completed[i].CompletedAt, completed[j].CompletedAt
		if !a.Equal(*b) {
			return a.After(*b)
		}
		return completed[i].Number > completed[j].Number
	})
	return copyTickets(completed), nil
}

func (s *Store) CountByDate(_ context.Context, from, to time.Time) ([]models.DayCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]*models.DayCount)
	for _, ticket := range s.tickets {
		if ticket.Date.Before(from) || ticket.Date.After(to) {
			continue
		}
		key := models.FormatDate(ticket.Date)
		count, ok := counts[key]
		if !ok {
			count = &models.DayCount{Date: ticket.Date}
			counts[key] = count
		}
		switch ticket.Status {
		case models.StatusWaiting:
			count.Waiting++
		case models.StatusCalled:
			count.Called++
		case models.StatusCompleted:
			count.Completed++
		}
	}

	result := make([]models.DayCount, 0, len(counts))
	for _, count := range counts {
		result = append(result, *count)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *Store) CreateStaff(_ context.Context, input store.CreateStaffInput) (models.Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Staff{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(input.Email))
	for _, record := range s.staff {
		if record.staff.Email == email {
			return models.Staff{}, store.ErrStaffExists
		}
	}
	staff := models.Staff{
		StaffID:   uuid.NewString(),
		Email:     email,
		Name:      input.Name,
		Active:    true,
		CreatedAt: s.now(),
	}
	s.staff[staff.StaffID] = &staffRecord{staff: staff, passwordHash: hash}
	return staff, nil
}

func (s *Store) Login(_ context.Context, email, password string, ttl time.Duration) (models.Session, models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, record := range s.staff {
		if record.staff.Email != email || !record.staff.Active {
			continue
		}
		if err := bcrypt.CompareHashAndPassword(record.passwordHash, []byte(password)); err != nil {
			return models.Session{}, models.Staff{}, store.ErrInvalidCredentials
		}
		session := models.Session{
			SessionID: uuid.NewString(),
			StaffID:   record.staff.StaffID,
			ExpiresAt: s.now().Add(ttl),
		}
		s.sessions[session.SessionID] = session
		return session, record.staff, nil
	}
	return models.Session{}, models.Staff{}, store.ErrInvalidCredentials
}

func (s *Store) GetSession(_ context.Context, sessionID string) (models.Session, models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || !session.ExpiresAt.After(s.now()) {
		return models.Session{}, models.Staff{}, store.ErrSessionNotFound
	}
	record, ok := s.staff[session.StaffID]
	if !ok || !record.staff.Active {
		return models.Session{}, models.Staff{}, store.ErrSessionNotFound
	}
	return session, record.staff, nil
}

func (s *Store) filter(date time.Time, status models.Status) []*models.Ticket {
	var tickets []*models.Ticket
	for _, ticket := range s.tickets {
		if ticket.Date.Equal(date) && ticket.Status == status {
			tickets = append(tickets, ticket)
		}
	}
	return tickets
}

func (s *Store) currentlyCalled(date time.Time) (*models.Ticket, bool) {
	called := s.filter(date, models.StatusCalled)
	if len(called) == 0 {
		return nil, false
	}
	sort.Slice(called, func(i, j int) bool {
		a, b := called[i].CalledAt, called[j].CalledAt
		if !a.Equal(*b) {
			return a.After(*b)
		}
		return called[i].Number > called[j].Number
	})
	return called[0], true
}

func (s *Store) occurredAt(input store.TransitionInput) time.Time {
	if input.OccurredAt.IsZero() {
		return s.now()
	}
	return input.OccurredAt
}

// actorPtr returns nil for a blank actor.
func actorPtr(actorID string) *string {
	if strings.TrimSpace(actorID) == "" {
		return nil
	}
	return &actorID
}

func sortByNumber(tickets []*models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Number < tickets[j].Number })
}

func copyTickets(tickets []*models.Ticket) []models.Ticket {
	result := make([]models.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		result = append(result, *ticket)
	}
	return result
}
