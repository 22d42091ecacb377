package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) CreateStaff(ctx context.Context, input store.CreateStaffInput) (models.Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Staff{}, err
	}

	var staff models.Staff
	row := s.pool.QueryRow(ctx, `
		INSERT INTO staff (staff_id, email, name, password_hash, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING staff_id, email, name, active, created_at
	`, uuid.NewString(), strings.ToLower(strings.TrimSpace(input.Email)), input.Name, string(hash))
	if err := row.Scan(&staff.StaffID, &staff.Email, &staff.Name, &staff.Active, &staff.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.Staff{}, store.ErrStaffExists
		}
		return models.Staff{}, store.Wrap("create_staff", err)
	}
	return staff, nil
}

func (s *Store) Login(ctx context.Context, email, password string, ttl time.Duration) (models.Session, models.Staff, error) {
	var staff models.Staff
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT staff_id, email, name, active, password_hash, created_at
		FROM staff
		WHERE lower(email) = lower($1) AND active = TRUE
	`, strings.TrimSpace(email))
	if err := row.Scan(&staff.StaffID, &staff.Email, &staff.Name, &staff.Active, &passwordHash, &staff.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, models.Staff{}, store.ErrInvalidCredentials
		}
		return models.Session{}, models.Staff{}, store.Wrap("login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return models.Session{}, models.Staff{}, store.ErrInvalidCredentials
	}

	session := models.Session{
		SessionID: uuid.NewString(),
		StaffID:   staff.StaffID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, staff_id, expires_at)
		VALUES ($1, $2, $3)
	`, session.SessionID, session.StaffID, session.ExpiresAt)
	if err != nil {
		return models.Session{}, models.Staff{}, store.Wrap("create_session", err)
	}
	return session, staff, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, models.Staff, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return models.Session{}, models.Staff{}, store.ErrSessionNotFound
	}
	var session models.Session
	var staff models.Staff
	row := s.pool.QueryRow(ctx, `
		SELECT ss.session_id, ss.staff_id, ss.expires_at,
		       st.staff_id, st.email, st.name, st.active, st.created_at
		FROM sessions ss
		JOIN staff st ON st.staff_id = ss.staff_id
		WHERE ss.session_id = $1 AND ss.expires_at > NOW() AND st.active = TRUE
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.StaffID, &session.ExpiresAt, &staff.StaffID, &staff.Email, &staff.Name, &staff.Active, &staff.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, models.Staff{}, store.ErrSessionNotFound
		}
		return models.Session{}, models.Staff{}, store.Wrap("get_session", err)
	}
	return session, staff, nil
}
