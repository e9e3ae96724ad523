package mqtt

import (
	"context"
	"time"
)

// Offer is an order proposed to the driver terminal of a vehicle.
type Offer struct {
	ID           string `json:"offer_id"`
	OrderID      string `json:"order_id"`
	VehicleID    int    `json:"vehicle_id"`
	DriverID     int    `json:"driver_id"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	TripDistance int    `json:"trip_distance"`
	PickupCost   int    `json:"pickup_distance"`
}

// Answer is the driver terminal's reply to an Offer.
type Answer struct {
	OfferID  string `json:"offer_id"`
	Accepted bool   `json:"accepted"`
}

// Client represents an MQTT client capable of offering orders to drivers and
// waiting for their answer.
type Client interface {
	// SendOffer publishes the offer to the driver terminal and returns the
	// identifier used to track the answer.
	SendOffer(o Offer) (offerID string, err error)

	// WaitForAnswer waits for the driver's answer to the offer until the
	// timeout expires or ctx is done. The offer is forgotten on return.
	WaitForAnswer(ctx context.Context, offerID string, timeout time.Duration) (bool, error)
}
