package keystore

import (
	"fmt"

	"github.com/kilianp07/taxi/core/model"
)

// Result is the outcome of a write.
type Result int

const (
	CommunicationError Result = iota
	Success
	CapacityFull
)

// String returns the canonical name of the result.
func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case CapacityFull:
		return "CAPACITY_FULL"
	default:
		return "COMMUNICATION_ERROR"
	}
}

// Err maps the result onto the shared error classes. Success yields nil.
func (r Result) Err() error {
	switch r {
	case Success:
		return nil
	case CapacityFull:
		return fmt.Errorf("keystore: %w", model.ErrNoCapacity)
	default:
		return fmt.Errorf("keystore: %w", model.ErrCommunication)
	}
}

// Outcome is a Result together with the number of exchanges it took.
type Outcome struct {
	Result   Result
	Attempts int
}
