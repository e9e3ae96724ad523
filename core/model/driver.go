package model

import "fmt"

// DefaultMaxTripDistance is the largest pickup to destination cost a driver
// accepts unless configured otherwise.
const DefaultMaxTripDistance = 50000

// Driver is an operator of a vehicle. It carries no mutable state.
type Driver struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// MaxTripDistance bounds accepted orders; 0 means DefaultMaxTripDistance.
	MaxTripDistance int `json:"max_trip_distance,omitempty"`
}

// Validate checks that the driver configuration is sound.
func (d Driver) Validate() error {
	if d.ID <= 0 {
		return fmt.Errorf("%w: driver id must be positive", ErrInvalidInput)
	}
	if d.MaxTripDistance < 0 {
		return fmt.Errorf("%w: driver %d max trip distance must not be negative", ErrInvalidInput, d.ID)
	}
	return nil
}

// Name returns "First Last".
func (d Driver) Name() string {
	switch {
	case d.FirstName == "":
		return d.LastName
	case d.LastName == "":
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

// Accepts reports whether the driver takes an order of the given trip cost.
func (d Driver) Accepts(tripDistance int) bool {
	limit := d.MaxTripDistance
	if limit == 0 {
		limit = DefaultMaxTripDistance
	}
	return tripDistance >= 0 && tripDistance <= limit
}
