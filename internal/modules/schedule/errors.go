package schedule

import "errors"

var (
	ErrInvalidInterval = errors.New("invalid time interval")
	ErrSlotConflict    = errors.New("slot conflicts with an existing booking")
)
