package model

import "errors"

// Error classes shared by the dispatch, meter and key-store packages. Package
// level errors wrap one of these so callers can branch with errors.Is.
var (
	// ErrInvalidInput marks malformed addresses, records or operator input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoCapacity marks a normal negative outcome: no vehicle, or a full key.
	ErrNoCapacity = errors.New("no capacity")
	// ErrCommunication marks an unreachable key-store device.
	ErrCommunication = errors.New("communication failure")
	// ErrInvalidTransition marks an operator signal issued in the wrong state.
	ErrInvalidTransition = errors.New("invalid state transition")
)
