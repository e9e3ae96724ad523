package events

import (
	"time"

	"github.com/kilianp07/taxi/core/model"
)

// DispatchEvent is published once per dispatch request.
// Outcome is "assigned", "no_vehicle" or "invalid_order".
type DispatchEvent struct {
	OrderID     string
	Pickup      string
	Destination string
	VehicleID   int
	DriverID    int
	Candidates  int
	Outcome     string
	Err         error
}

// OfferEvent is published for each order offered to a driver.
type OfferEvent struct {
	OrderID   string
	VehicleID int
	DriverID  int
	Accepted  bool
	Err       error
	Latency   time.Duration
}

// StateChangeEvent is published when a meter changes the vehicle status.
type StateChangeEvent struct {
	VehicleID int
	From      model.Status
	To        model.Status
	Signal    int
}
