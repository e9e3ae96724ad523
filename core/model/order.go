package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Order is a transient dispatch request.
type Order struct {
	ID          string   `json:"id"`
	Pickup      *Address `json:"pickup"`
	Destination *Address `json:"destination"`
}

// Validate rejects orders with missing or malformed endpoints.
func (o Order) Validate() error {
	if o.Pickup == nil {
		return fmt.Errorf("%w: order without pickup", ErrInvalidInput)
	}
	if o.Destination == nil {
		return fmt.Errorf("%w: order without destination", ErrInvalidInput)
	}
	if err := o.Pickup.Validate(); err != nil {
		return err
	}
	return o.Destination.Validate()
}

// TripDistance is the metric cost from pickup to destination.
func (o Order) TripDistance() int {
	return Distance(o.Pickup, o.Destination)
}

// OrderData is the six field "pickup;dest;start;end;km;fare" text form an
// order takes once it has been driven, without vehicle and driver.
type OrderData struct {
	Pickup      Address
	Destination Address
	Start       time.Time
	End         time.Time
	DistanceKm  float64
	Fare        float64
}

// ParseOrderData parses the six field form. Fields are trimmed.
func ParseOrderData(s string) (OrderData, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 6 {
		return OrderData{}, fmt.Errorf("%w: order data needs 6 fields, got %d", ErrInvalidInput, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	var (
		od  OrderData
		err error
	)
	if od.Pickup, err = ParseAddress(parts[0]); err != nil {
		return OrderData{}, err
	}
	if od.Destination, err = ParseAddress(parts[1]); err != nil {
		return OrderData{}, err
	}
	if od.Start, err = ParseTimestamp(parts[2]); err != nil {
		return OrderData{}, err
	}
	if od.End, err = ParseTimestamp(parts[3]); err != nil {
		return OrderData{}, err
	}
	if od.DistanceKm, err = parseAmount("distance", parts[4]); err != nil {
		return OrderData{}, err
	}
	if od.Fare, err = parseAmount("fare", parts[5]); err != nil {
		return OrderData{}, err
	}
	if od.End.Before(od.Start) {
		return OrderData{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidInput, parts[3], parts[2])
	}
	return od, nil
}

func parseAmount(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidInput, field, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %s %q must not be negative", ErrInvalidInput, field, s)
	}
	return v, nil
}
