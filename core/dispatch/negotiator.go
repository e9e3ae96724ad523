package dispatch

import (
	"context"

	"github.com/kilianp07/taxi/core/model"
)

// Offer is an order proposed to one driver for one candidate vehicle.
type Offer struct {
	OrderID        string
	VehicleID      int
	Driver         model.Driver
	Pickup         model.Address
	Destination    model.Address
	PickupDistance int
	TripDistance   int
}

// Negotiator asks a driver whether they take an offer. An error counts as a
// refusal.
type Negotiator interface {
	Offer(ctx context.Context, o Offer) (bool, error)
}

// NegotiatorFunc adapts a function to Negotiator.
type NegotiatorFunc func(ctx context.Context, o Offer) (bool, error)

// Offer calls f.
func (f NegotiatorFunc) Offer(ctx context.Context, o Offer) (bool, error) { return f(ctx, o) }

// PolicyNegotiator decides in process using the driver's acceptance rule.
type PolicyNegotiator struct{}

// Offer accepts when the trip distance is within the driver's limit.
func (PolicyNegotiator) Offer(ctx context.Context, o Offer) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return o.Driver.Accepts(o.TripDistance), nil
}
