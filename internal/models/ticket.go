package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCalled    Status = "called"
	StatusCompleted Status = "completed"
)

const DateLayout = "2006-01-02"

type Ticket struct {
	TicketID    string     `json:"id"`
	Number      int        `json:"queue_number"`
	Date        time.Time  `json:"-"`
	Status      Status     `json:"status"`
	CalledAt    *time.Time `json:"called_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CalledBy    *string    `json:"called_by"`
	CompletedBy *string    `json:"completed_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MarshalJSON renders Date as a civil date instead of a timestamp.
func (t Ticket) MarshalJSON() ([]byte, error) {
	type alias Ticket
	return json.Marshal(struct {
		alias
		QueueDate string `json:"queue_date"`
	}{alias: alias(t), QueueDate: FormatDate(t.Date)})
}

func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", value)
	}
	return status, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusCalled, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a ticket in status s may move to next.
// Tickets only move forward one step at a time.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusCalled
	case StatusCalled:
		return next == StatusCompleted
	case StatusCompleted:
		return false
	default:
		return false
	}
}

// DateOf returns the civil date of t in loc, normalised to midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func FormatDate(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.Format(DateLayout)
}

// MonthDays returns every calendar day of the month containing date.
func MonthDays(date time.Time) []time.Time {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	var days []time.Time
	for day := first; day.Month() == first.Month(); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}
