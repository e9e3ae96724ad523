package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the textual timestamp format of trip records (dd.MM.yyyy HH:mm).
const TimeLayout = "02.01.2006 15:04"

// ParseTimestamp parses a TimeLayout timestamp in local time.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", ErrInvalidInput, s, err)
	}
	return t, nil
}

// FormatTimestamp renders t in TimeLayout.
func FormatTimestamp(t time.Time) string { return t.Format(TimeLayout) }

// TripRecord is the immutable summary of a completed trip.
type TripRecord struct {
	VehicleID   int       `json:"vehicle_id"`
	DriverID    int       `json:"driver_id"`
	Pickup      Address   `json:"pickup"`
	Destination Address   `json:"destination"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DistanceKm  float64   `json:"distance_km"`
	Fare        float64   `json:"fare_eur"`
}

// Validate checks the record invariants.
func (r TripRecord) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: trip ends before it starts", ErrInvalidInput)
	}
	if r.DistanceKm < 0 || r.Fare < 0 {
		return fmt.Errorf("%w: negative distance or fare", ErrInvalidInput)
	}
	return nil
}

// Format renders the semicolon delimited export form:
// vehicleId;driverId;pickup;destination;start;end;distanceKm;fareEUR.
func (r TripRecord) Format() string {
	return strings.Join([]string{
		strconv.Itoa(r.VehicleID),
		strconv.Itoa(r.DriverID),
		r.Pickup.String(),
		r.Destination.String(),
		FormatTimestamp(r.Start),
		FormatTimestamp(r.End),
		strconv.FormatFloat(r.DistanceKm, 'f', 2, 64),
		strconv.FormatFloat(r.Fare, 'f', 2, 64),
	}, ";")
}

// Bytes returns the export form as a key-store payload.
func (r TripRecord) Bytes() []byte { return []byte(r.Format()) }

// ParseTripRecord parses the eight field export form.
func ParseTripRecord(s string) (TripRecord, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 8 {
		return TripRecord{}, fmt.Errorf("%w: trip record needs 8 fields, got %d", ErrInvalidInput, len(parts))
	}
	vid, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return TripRecord{}, fmt.Errorf("%w: vehicle id %q", ErrInvalidInput, parts[0])
	}
	did, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return TripRecord{}, fmt.Errorf("%w: driver id %q", ErrInvalidInput, parts[1])
	}
	od, err := ParseOrderData(strings.Join(parts[2:], ";"))
	if err != nil {
		return TripRecord{}, err
	}
	return TripRecord{
		VehicleID:   vid,
		DriverID:    did,
		Pickup:      od.Pickup,
		Destination: od.Destination,
		Start:       od.Start,
		End:         od.End,
		DistanceKm:  od.DistanceKm,
		Fare:        od.Fare,
	}, nil
}

const receiptRule = "============="

// Receipt renders the human readable receipt printed for a passenger.
func (r TripRecord) Receipt() string {
	var b strings.Builder
	b.WriteString("Taxi-Quittung\n")
	b.WriteString(receiptRule + "\n")
	fmt.Fprintf(&b, "Taxi-Nr: %d\n", r.VehicleID)
	fmt.Fprintf(&b, "Fahrer-Nr: %d\n", r.DriverID)
	fmt.Fprintf(&b, "Von: %s\n", r.Pickup)
	fmt.Fprintf(&b, "Nach: %s\n", r.Destination)
	fmt.Fprintf(&b, "Start: %s\n", FormatTimestamp(r.Start))
	fmt.Fprintf(&b, "Ende: %s\n", FormatTimestamp(r.End))
	fmt.Fprintf(&b, "Strecke: %.2f km\n", r.DistanceKm)
	fmt.Fprintf(&b, "Preis: %.2f EUR\n", r.Fare)
	b.WriteString(receiptRule + "\n")
	b.WriteString("Vielen Dank!\n")
	return b.String()
}
