package model

import "fmt"

// Vehicle is a taxi of the fleet. ID is immutable; Status, Location and
// Odometer are only changed through the fleet directory.
type Vehicle struct {
	ID       int      `json:"id"`
	Odometer float64  `json:"odometer_km"`
	Status   Status   `json:"status"`
	Location *Address `json:"location,omitempty"`
	// DriverID is the paired driver, 0 when the vehicle has none.
	DriverID int `json:"driver_id,omitempty"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.ID <= 0 {
		return fmt.Errorf("%w: vehicle id must be positive", ErrInvalidInput)
	}
	if v.Odometer < 0 {
		return fmt.Errorf("%w: vehicle %d odometer must not be negative", ErrInvalidInput, v.ID)
	}
	if v.Location != nil {
		if err := v.Location.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a copy that does not share the location pointer.
func (v Vehicle) Clone() Vehicle {
	if v.Location != nil {
		loc := *v.Location
		v.Location = &loc
	}
	return v
}
