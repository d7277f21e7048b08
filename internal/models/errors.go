package models

import "errors"

var (
	// ErrInsufficientFunds is returned when a debit would take a wallet
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound is returned for stale or unknown references.
	ErrNotFound = errors.New("not found")
)
