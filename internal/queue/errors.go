package queue

import "errors"

var (
	ErrUnknownAction = errors.New("unknown queue action")
	ErrUnknownFilter = errors.New("unknown report filter")
)
