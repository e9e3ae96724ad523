package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Address is a postal location descriptor.
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// ParseAddress parses the comma separated "street,postalCode,city" form.
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Address{}, fmt.Errorf("%w: address %q must be street,postalCode,city", ErrInvalidInput, s)
	}
	a := Address{
		Street:     strings.TrimSpace(parts[0]),
		PostalCode: strings.TrimSpace(parts[1]),
		City:       strings.TrimSpace(parts[2]),
	}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// MustParseAddress is ParseAddress for literals known to be valid.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Validate reports whether every field is set.
func (a Address) Validate() error {
	if a.Street == "" || a.PostalCode == "" || a.City == "" {
		return fmt.Errorf("%w: address %q has empty fields", ErrInvalidInput, a.String())
	}
	return nil
}

// String renders the address in its wire form.
func (a Address) String() string {
	return a.Street + "," + a.PostalCode + "," + a.City
}

// DistanceFunc returns a deterministic non-negative cost between two
// locations. It is only meaningful for relative ordering.
type DistanceFunc func(from, to *Address) int

// Distance is the default metric. Postal code proximity dominates, the street
// name contributes a bounded term and a different city adds a fixed penalty.
// A nil address on either side is infinitely far away.
func Distance(from, to *Address) int {
	if from == nil || to == nil {
		return math.MaxInt32
	}
	d := 0
	p1, err1 := strconv.Atoi(from.PostalCode)
	p2, err2 := strconv.Atoi(to.PostalCode)
	if err1 == nil && err2 == nil {
		d += abs(p1-p2) * 100
	} else {
		d += 5000
	}

	diff := stringHash(from.Street) - stringHash(to.Street)
	if diff < 0 {
		diff = -diff
	}
	d += int(diff % 10000)

	if from.City != to.City {
		d += 10000
	}
	return abs(d)
}

// stringHash is the 31-multiplier polynomial hash over UTF-16 code units with
// 32-bit wraparound. Keeping it bit exact keeps rankings stable across
// deployments that share recorded fleets.
func stringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
