package ledger

import "errors"

// Store-level facts, wrapped into coded domain errors by the service layer.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("balance overflow")
)
