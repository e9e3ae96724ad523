package meter

import (
	"io"
	"sync"

	"github.com/kilianp07/taxi/core/model"
)

// Fallback locations used when the vehicle has no position fix.
var (
	UnknownStart       = model.Address{Street: "Start", PostalCode: "00000", City: "Unbekannt"}
	UnknownDestination = model.Address{Street: "Ziel", PostalCode: "00000", City: "Unbekannt"}
)

// Reading is a sensor snapshot.
type Reading struct {
	OdometerKm float64
	Location   *model.Address
}

// Sensors supplies odometer and position at trip start and trip end.
type Sensors interface {
	StartReading(v model.Vehicle) (Reading, error)
	EndReading(v model.Vehicle) (Reading, error)
}

// FixedTripSensors reports the directory odometer at trip start and advances
// it by TripKm at trip end. It is meant for benches without hardware.
type FixedTripSensors struct {
	TripKm      float64
	Destination *model.Address
}

// StartReading implements Sensors.
func (s FixedTripSensors) StartReading(v model.Vehicle) (Reading, error) {
	return Reading{OdometerKm: v.Odometer, Location: v.Location}, nil
}

// EndReading implements Sensors.
func (s FixedTripSensors) EndReading(v model.Vehicle) (Reading, error) {
	return Reading{OdometerKm: v.Odometer + s.TripKm, Location: s.Destination}, nil
}

// Indicator drives the roof sign.
type Indicator interface {
	SetSign(on bool)
}

// SignState is an Indicator remembering the last state.
type SignState struct {
	mu sync.Mutex
	on bool
}

func (s *SignState) SetSign(on bool) {
	s.mu.Lock()
	s.on = on
	s.mu.Unlock()
}

// On reports whether the sign is lit.
func (s *SignState) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Printer prints passenger receipts.
type Printer interface {
	Print(receipt string) error
}

// WriterPrinter prints receipts to an io.Writer.
type WriterPrinter struct {
	W io.Writer
}

// Print implements Printer.
func (p WriterPrinter) Print(receipt string) error {
	_, err := io.WriteString(p.W, receipt)
	return err
}
