package meter

import (
	"fmt"
	"strconv"
	"strings"
)

// Signal is an operator button.
type Signal int

const (
	SignalStop       Signal = 0
	SignalFree       Signal = 1
	SignalToCustomer Signal = 2
	SignalStartTrip  Signal = 3
	SignalEndTrip    Signal = 4
	SignalReceipt    Signal = 5
)

// Valid reports whether s is one of the six buttons.
func (s Signal) Valid() bool { return s >= SignalStop && s <= SignalReceipt }

func (s Signal) String() string {
	switch s {
	case SignalStop:
		return "stop"
	case SignalFree:
		return "free"
	case SignalToCustomer:
		return "to_customer"
	case SignalStartTrip:
		return "start_trip"
	case SignalEndTrip:
		return "end_trip"
	case SignalReceipt:
		return "receipt"
	default:
		return "signal(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseSignal parses a button number.
func ParseSignal(s string) (Signal, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSignal, s)
	}
	sig := Signal(n)
	if !sig.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSignal, n)
	}
	return sig, nil
}

// ParseSignals parses a comma or whitespace separated button list.
func ParseSignals(s string) ([]Signal, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	out := make([]Signal, 0, len(fields))
	for _, f := range fields {
		sig, err := ParseSignal(f)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}
