package models

import "time"

type Staff struct {
	StaffID   string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	SessionID string    `json:"session_id"`
	StaffID   string    `json:"staff_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DayCount holds per-status ticket counts for one queue date.
type DayCount struct {
	Date      time.Time
	Waiting   int
	Called    int
	Completed int
}

func (c DayCount) Total() int {
	return c.Waiting + c.Called + c.Completed
}
