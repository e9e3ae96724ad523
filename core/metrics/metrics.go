package metrics

import (
	"time"

	"github.com/kilianp07/taxi/core/model"
)

// DispatchEvent represents the outcome of one dispatch request.
type DispatchEvent struct {
	OrderID    string
	VehicleID  int
	DriverID   int
	Candidates int
	Outcome    string
	Duration   time.Duration
	Time       time.Time
}

// MetricsSink records dispatch outcomes for observability purposes.
type MetricsSink interface {
	RecordDispatch(ev DispatchEvent) error
}

// OfferEvent captures a driver's answer to an offered order.
type OfferEvent struct {
	OrderID   string
	VehicleID int
	DriverID  int
	Accepted  bool
	Latency   time.Duration
	Error     string
	Time      time.Time
}

// OfferRecorder records offer answers.
type OfferRecorder interface {
	RecordOffer(ev OfferEvent) error
}

// TripEvent captures a completed trip.
type TripEvent struct {
	Record         model.TripRecord
	KeyStoreResult string
	Time           time.Time
}

// TripRecorder records completed trips.
type TripRecorder interface {
	RecordTrip(ev TripEvent) error
}

// KeyStoreEvent captures one write exchange with a key-store device.
type KeyStoreEvent struct {
	VehicleID int
	Result    string
	Attempts  int
	Bytes     int
	Time      time.Time
}

// KeyStoreRecorder records key-store exchanges.
type KeyStoreRecorder interface {
	RecordKeyStore(ev KeyStoreEvent) error
}

// StateChangeEvent captures a vehicle status transition.
type StateChangeEvent struct {
	VehicleID int
	From      string
	To        string
	Time      time.Time
}

// StateRecorder records vehicle status transitions.
type StateRecorder interface {
	RecordStateChange(ev StateChangeEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatch(DispatchEvent) error       { return nil }
func (NopSink) RecordOffer(OfferEvent) error             { return nil }
func (NopSink) RecordTrip(TripEvent) error               { return nil }
func (NopSink) RecordKeyStore(KeyStoreEvent) error       { return nil }
func (NopSink) RecordStateChange(StateChangeEvent) error { return nil }
