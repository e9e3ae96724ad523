package model

import (
	"fmt"
	"strings"
)

// Status is the operational status of a vehicle.
type Status int

const (
	StatusOutOfService Status = iota
	StatusFree
	StatusEnRouteToCustomer
	StatusEnRouteToDestination
)

// String returns the canonical upper case name of the status.
func (s Status) String() string {
	switch s {
	case StatusFree:
		return "FREE"
	case StatusEnRouteToCustomer:
		return "EN_ROUTE_TO_CUSTOMER"
	case StatusEnRouteToDestination:
		return "EN_ROUTE_TO_DESTINATION"
	case StatusOutOfService:
		return "OUT_OF_SERVICE"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus converts a status name back to a Status. Matching ignores case.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FREE":
		return StatusFree, nil
	case "EN_ROUTE_TO_CUSTOMER":
		return StatusEnRouteToCustomer, nil
	case "EN_ROUTE_TO_DESTINATION":
		return StatusEnRouteToDestination, nil
	case "OUT_OF_SERVICE", "":
		return StatusOutOfService, nil
	default:
		return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
