package ledger

import "errors"

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientTokens = errors.New("insufficient token balance")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidKind        = errors.New("invalid ledger entry kind")
)
