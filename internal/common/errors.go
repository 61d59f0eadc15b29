package common

import "errors"

var (
	// ErrRejection is wrapped by every precondition failure. A rejected
	// submission leaves the book untouched.
	ErrRejection = errors.New("order rejection")

	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrNegativePrice     = errors.New("price must not be negative")
	ErrInvalidSide       = errors.New("invalid side")
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrInvariantBreach marks a defect inside the book. The affected
	// instrument stops accepting orders once this is observed.
	ErrInvariantBreach  = errors.New("order book invariant breach")
	ErrInstrumentHalted = errors.New("instrument halted")
)
