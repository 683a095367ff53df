package service

import "errors"

// Sentinel errors surfaced to clients with stable reason codes. Anything
// else bubbling out of the service is treated as a transient store failure
// and answered with a 5xx.
var (
	// Validation
	ErrInvalidAmount   = errors.New("amount must be a non-zero integer")
	ErrMissingCategory = errors.New("category is required")

	// Ledger
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotOwner            = errors.New("transaction belongs to another user")

	// Accounts
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)
