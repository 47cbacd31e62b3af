package access

import "errors"

var (
	ErrNotFound           = errors.New("booking not found")
	ErrSessionNotFound    = errors.New("no access session for booking")
	ErrForbidden          = errors.New("not the booking owner")
	ErrNotYetStarted      = errors.New("booking window has not started")
	ErrExpired            = errors.New("booking window has expired")
	ErrNotConfirmed       = errors.New("booking is not confirmed")
	ErrProvisioningFailed = errors.New("remote access provisioning failed")
)
