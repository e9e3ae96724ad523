package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/taxi/core/dispatch"
	coremqtt "github.com/kilianp07/taxi/core/mqtt"
)

// DefaultOfferTimeout bounds the wait for a driver's answer.
const DefaultOfferTimeout = 10 * time.Second

// Negotiator offers orders to driver terminals over MQTT. A missing answer
// counts as a refusal.
type Negotiator struct {
	client  coremqtt.Client
	timeout time.Duration
}

// NewNegotiator wraps an offer client. A zero timeout uses DefaultOfferTimeout.
func NewNegotiator(c coremqtt.Client, timeout time.Duration) (*Negotiator, error) {
	if c == nil {
		return nil, fmt.Errorf("mqtt: nil parameter provided to NewNegotiator")
	}
	if timeout <= 0 {
		timeout = DefaultOfferTimeout
	}
	return &Negotiator{client: c, timeout: timeout}, nil
}

// Offer implements dispatch.Negotiator.
func (n *Negotiator) Offer(ctx context.Context, o dispatch.Offer) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	id, err := n.client.SendOffer(coremqtt.Offer{
		ID:           uuid.NewString(),
		OrderID:      o.OrderID,
		VehicleID:    o.VehicleID,
		DriverID:     o.Driver.ID,
		Pickup:       o.Pickup.String(),
		Destination:  o.Destination.String(),
		TripDistance: o.TripDistance,
		PickupCost:   o.PickupDistance,
	})
	if err != nil {
		return false, err
	}
	return n.client.WaitForAnswer(ctx, id, n.timeout)
}

var _ dispatch.Negotiator = (*Negotiator)(nil)
