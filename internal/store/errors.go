package store

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateNumber    = errors.New("duplicate ticket number")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrInvalidState       = errors.New("invalid ticket state")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrStaffExists        = errors.New("staff already exists")
)

// StorageError reports a persistence failure for a named operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *StorageError unless it is nil, a sentinel the
// caller is expected to branch on, or already a StorageError.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateNumber) ||
		errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrStaffExists) {
		return err
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
