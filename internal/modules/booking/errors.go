package booking

import "errors"

var (
	ErrNotFound        = errors.New("booking not found")
	ErrForbidden       = errors.New("not allowed to act on this booking")
	ErrAlreadyTerminal = errors.New("booking is already completed or cancelled")
	ErrRackUnavailable = errors.New("rack is not available for booking")
)
