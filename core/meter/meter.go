// Package meter implements the on-board taxi meter: an operator driven state
// machine that prices trips and persists them on the driver's key.
package meter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/taxi/core/events"
	"github.com/kilianp07/taxi/core/fare"
	"github.com/kilianp07/taxi/core/keystore"
	"github.com/kilianp07/taxi/core/logger"
	"github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/core/model"
	"github.com/kilianp07/taxi/core/triplog"
	"github.com/kilianp07/taxi/internal/eventbus"
)

var (
	// ErrTripNotStarted is returned for signal 4 outside EN_ROUTE_TO_DESTINATION.
	ErrTripNotStarted = fmt.Errorf("meter: trip not started: %w", model.ErrInvalidTransition)
	// ErrNoRecord is returned for signal 5 before any trip was completed.
	ErrNoRecord = fmt.Errorf("meter: no trip record: %w", model.ErrInvalidTransition)
	// ErrInvalidSignal is returned for buttons outside 0-5.
	ErrInvalidSignal = fmt.Errorf("meter: invalid signal: %w", model.ErrInvalidInput)
	// ErrNoKey is returned while no key session is active.
	ErrNoKey = errors.New("meter: no key present")
	// ErrStopped is returned after signal 0.
	ErrStopped = errors.New("meter: stopped")
)

// Fleet is the part of the fleet directory the meter writes to.
type Fleet interface {
	Vehicle(id int) (model.Vehicle, bool)
	SetStatus(id int, s model.Status) error
	SetOdometer(id int, km float64) error
	SetLocation(id int, loc *model.Address) error
	AssignDriver(vehicleID, driverID int) error
}

// KeyStore is the driver's key as seen by the meter.
type KeyStore interface {
	KeyPresent() bool
	DriverID() (int, error)
	WriteRecord(r model.TripRecord) keystore.Outcome
}

// Report describes what a signal did.
type Report struct {
	Signal   Signal
	From     model.Status
	To       model.Status
	Record   *model.TripRecord
	KeyStore *keystore.Outcome
	Receipt  string
}

type tripStart struct {
	odometer float64
	at       time.Time
	location model.Address
}

// Meter is the trip state machine of one vehicle. Vehicle status, odometer
// and location live in the fleet directory so dispatch and meter share one
// lock.
type Meter struct {
	mu        sync.Mutex
	vehicleID int
	fleet     Fleet
	keys      KeyStore
	tariff    fare.Tariff
	sensors   Sensors
	indicator Indicator
	printer   Printer
	trips     triplog.Store
	metrics   metrics.MetricsSink
	bus       eventbus.EventBus
	logger    logger.Logger
	now       func() time.Time

	active   bool
	stopped  bool
	driverID int
	trip     *tripStart
	last     *model.TripRecord
}

// Option configures a Meter.
type Option func(*Meter)

// WithTariff sets the tariff. Default is fare.Default.
func WithTariff(t fare.Tariff) Option { return func(m *Meter) { m.tariff = t } }

// WithSensors sets the odometer and position source.
func WithSensors(s Sensors) Option { return func(m *Meter) { m.sensors = s } }

// WithIndicator sets the roof sign.
func WithIndicator(i Indicator) Option { return func(m *Meter) { m.indicator = i } }

// WithPrinter sets the receipt printer.
func WithPrinter(p Printer) Option { return func(m *Meter) { m.printer = p } }

// WithTripLog sets the durable trip log.
func WithTripLog(s triplog.Store) Option { return func(m *Meter) { m.trips = s } }

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.MetricsSink) Option { return func(m *Meter) { m.metrics = s } }

// WithBus sets the event bus.
func WithBus(b eventbus.EventBus) Option { return func(m *Meter) { m.bus = b } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(m *Meter) { m.logger = l } }

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(m *Meter) { m.now = now } }

// New creates the meter of a vehicle registered in the directory. The vehicle
// is put OUT_OF_SERVICE until Start opens a key session.
func New(vehicleID int, f Fleet, keys KeyStore, opts ...Option) (*Meter, error) {
	if f == nil || keys == nil {
		return nil, fmt.Errorf("meter: nil parameter provided to New")
	}
	if _, ok := f.Vehicle(vehicleID); !ok {
		return nil, fmt.Errorf("meter: vehicle %d: %w", vehicleID, model.ErrInvalidInput)
	}
	m := &Meter{
		vehicleID: vehicleID,
		fleet:     f,
		keys:      keys,
		tariff:    fare.Default(),
		sensors:   FixedTripSensors{},
		indicator: &SignState{},
		trips:     triplog.NopStore{},
		metrics:   metrics.NopSink{},
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	// No key session yet, so the vehicle must not be offered to customers.
	if v, _ := f.Vehicle(vehicleID); v.Status != model.StatusOutOfService {
		if err := f.SetStatus(vehicleID, model.StatusOutOfService); err != nil {
			return nil, err
		}
		m.publishTransition(Report{From: v.Status, To: model.StatusOutOfService, Signal: -1})
	}
	return m, nil
}

// Start opens a key session: it detects the key and reads the driver number.
// On failure the vehicle is put OUT_OF_SERVICE; Start may be retried.
func (m *Meter) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrStopped
	}
	if !m.keys.KeyPresent() {
		m.outOfServiceLocked("no key detected")
		return ErrNoKey
	}
	id, err := m.keys.DriverID()
	if err == nil && id <= 0 {
		err = fmt.Errorf("driver id %d", id)
	}
	if err != nil {
		m.outOfServiceLocked("driver id unreadable")
		return fmt.Errorf("%w: %v", ErrNoKey, err)
	}
	if err := m.fleet.AssignDriver(m.vehicleID, id); err != nil {
		m.outOfServiceLocked("driver not allowed")
		return err
	}
	m.driverID = id
	m.active = true
	m.infof("vehicle %d: key session opened for driver %d", m.vehicleID, id)
	return nil
}

// DriverID returns the driver of the active key session, 0 without one.
func (m *Meter) DriverID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driverID
}

// LastRecord returns the most recent trip record.
func (m *Meter) LastRecord() (model.TripRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return model.TripRecord{}, false
	}
	return *m.last, true
}

// Status returns the vehicle's current status.
func (m *Meter) Status() model.Status {
	v, _ := m.fleet.Vehicle(m.vehicleID)
	return v.Status
}

// Handle processes one operator signal. Invalid signals and signals issued in
// the wrong state are reported and leave the state unchanged.
func (m *Meter) Handle(sig Signal) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return Report{Signal: sig}, ErrStopped
	}
	if m.active && !m.keys.KeyPresent() {
		m.active = false
		m.trip = nil
		m.outOfServiceLocked("key removed")
		return Report{Signal: sig, To: model.StatusOutOfService}, ErrNoKey
	}
	if !sig.Valid() {
		return Report{Signal: sig}, fmt.Errorf("%w: %d", ErrInvalidSignal, int(sig))
	}
	if !m.active {
		return Report{Signal: sig}, ErrNoKey
	}

	v, ok := m.fleet.Vehicle(m.vehicleID)
	if !ok {
		return Report{Signal: sig}, fmt.Errorf("meter: vehicle %d vanished: %w", m.vehicleID, model.ErrInvalidInput)
	}
	rep := Report{Signal: sig, From: v.Status, To: v.Status}

	switch sig {
	case SignalStop:
		m.stopped = true
		m.active = false
		m.releaseDriverLocked()
		m.infof("vehicle %d: meter stopped", m.vehicleID)
		return rep, nil
	case SignalFree:
		return m.transitionLocked(rep, model.StatusFree, true)
	case SignalToCustomer:
		return m.transitionLocked(rep, model.StatusEnRouteToCustomer, false)
	case SignalStartTrip:
		return m.startTripLocked(v, rep)
	case SignalEndTrip:
		return m.endTripLocked(v, rep)
	default:
		return m.receiptLocked(rep)
	}
}

func (m *Meter) transitionLocked(rep Report, to model.Status, sign bool) (Report, error) {
	if err := m.fleet.SetStatus(m.vehicleID, to); err != nil {
		return rep, err
	}
	m.indicator.SetSign(sign)
	rep.To = to
	m.publishTransition(rep)
	return rep, nil
}

func (m *Meter) startTripLocked(v model.Vehicle, rep Report) (Report, error) {
	r, err := m.sensors.StartReading(v)
	if err != nil {
		return rep, fmt.Errorf("meter: start reading: %w", err)
	}
	loc := UnknownStart
	if r.Location != nil {
		loc = *r.Location
	}
	rep, err = m.transitionLocked(rep, model.StatusEnRouteToDestination, false)
	if err != nil {
		return rep, err
	}
	m.trip = &tripStart{odometer: r.OdometerKm, at: m.now(), location: loc}
	m.debugw("trip started", map[string]any{
		"vehicle_id": m.vehicleID,
		"odometer":   r.OdometerKm,
		"from":       loc.String(),
	})
	return rep, nil
}

func (m *Meter) endTripLocked(v model.Vehicle, rep Report) (Report, error) {
	if v.Status != model.StatusEnRouteToDestination || m.trip == nil {
		return rep, ErrTripNotStarted
	}
	r, err := m.sensors.EndReading(v)
	if err != nil {
		return rep, fmt.Errorf("meter: end reading: %w", err)
	}
	dest := UnknownDestination
	if r.Location != nil {
		dest = *r.Location
	}
	distance := r.OdometerKm - m.trip.odometer
	if distance < 0 {
		distance = 0
	}
	end := m.now()
	if end.Before(m.trip.at) {
		end = m.trip.at
	}
	rec := model.TripRecord{
		VehicleID:   m.vehicleID,
		DriverID:    m.driverID,
		Pickup:      m.trip.location,
		Destination: dest,
		Start:       m.trip.at,
		End:         end,
		DistanceKm:  distance,
		Fare:        m.tariff.Price(distance),
	}
	if r.OdometerKm > v.Odometer {
		if err := m.fleet.SetOdometer(m.vehicleID, r.OdometerKm); err != nil {
			m.warnf("vehicle %d: odometer update: %v", m.vehicleID, err)
		}
	}
	if err := m.fleet.SetLocation(m.vehicleID, &dest); err != nil {
		m.warnf("vehicle %d: location update: %v", m.vehicleID, err)
	}

	out := m.keys.WriteRecord(rec)
	switch out.Result {
	case keystore.Success:
		m.infof("vehicle %d: trip stored on key (%.2f km, %.2f EUR)", m.vehicleID, rec.DistanceKm, rec.Fare)
	default:
		m.warnf("vehicle %d: trip not stored on key: %s after %d attempts", m.vehicleID, out.Result, out.Attempts)
	}

	m.trip = nil
	m.last = &rec
	rep.Record = &rec
	rep.KeyStore = &out
	m.recordTrip(rec, out)

	rep, err = m.transitionLocked(rep, model.StatusFree, true)
	return rep, err
}

func (m *Meter) receiptLocked(rep Report) (Report, error) {
	if m.last == nil {
		return rep, ErrNoRecord
	}
	rep.Receipt = m.last.Receipt()
	if m.printer != nil {
		if err := m.printer.Print(rep.Receipt); err != nil {
			m.warnf("vehicle %d: printing receipt: %v", m.vehicleID, err)
		}
	}
	return rep, nil
}

func (m *Meter) recordTrip(rec model.TripRecord, out keystore.Outcome) {
	tripsCompleted.WithLabelValues(out.Result.String()).Inc()
	tripFare.Observe(rec.Fare)
	now := m.now()
	if err := m.trips.Append(context.Background(), triplog.Entry{
		Timestamp:      now,
		Record:         rec,
		KeyStoreResult: out.Result.String(),
		Attempts:       out.Attempts,
	}); err != nil {
		m.errorf("vehicle %d: trip log: %v", m.vehicleID, err)
	}
	if tr, ok := m.metrics.(metrics.TripRecorder); ok {
		if err := tr.RecordTrip(metrics.TripEvent{Record: rec, KeyStoreResult: out.Result.String(), Time: now}); err != nil {
			m.errorf("trip metrics error: %v", err)
		}
	}
	if kr, ok := m.metrics.(metrics.KeyStoreRecorder); ok {
		if err := kr.RecordKeyStore(metrics.KeyStoreEvent{
			VehicleID: m.vehicleID,
			Result:    out.Result.String(),
			Attempts:  out.Attempts,
			Bytes:     len(rec.Format()),
			Time:      now,
		}); err != nil {
			m.errorf("keystore metrics error: %v", err)
		}
	}
	if m.bus != nil {
		m.bus.Publish(events.TripCompletedEvent{Record: rec, KeyStoreResult: out.Result.String()})
	}
}

func (m *Meter) outOfServiceLocked(reason string) {
	v, _ := m.fleet.Vehicle(m.vehicleID)
	if err := m.fleet.SetStatus(m.vehicleID, model.StatusOutOfService); err != nil {
		m.errorf("vehicle %d: %v", m.vehicleID, err)
	}
	m.releaseDriverLocked()
	m.warnf("vehicle %d out of service: %s", m.vehicleID, reason)
	m.publishTransition(Report{From: v.Status, To: model.StatusOutOfService, Signal: -1})
}

func (m *Meter) releaseDriverLocked() {
	m.driverID = 0
	if v, ok := m.fleet.Vehicle(m.vehicleID); !ok || v.DriverID == 0 {
		return
	}
	if err := m.fleet.AssignDriver(m.vehicleID, 0); err != nil {
		m.errorf("vehicle %d: release driver: %v", m.vehicleID, err)
	}
}

func (m *Meter) publishTransition(rep Report) {
	if rep.From != rep.To {
		m.debugw("state change", map[string]any{
			"vehicle_id": m.vehicleID,
			"from":       rep.From.String(),
			"to":         rep.To.String(),
			"signal":     int(rep.Signal),
		})
	}
	if m.bus != nil {
		m.bus.Publish(events.StateChangeEvent{
			VehicleID: m.vehicleID,
			From:      rep.From,
			To:        rep.To,
			Signal:    int(rep.Signal),
		})
	}
}

func (m *Meter) infof(format string, args ...any) {
	if m.logger != nil {
		m.logger.Infof(format, args...)
	}
}

func (m *Meter) warnf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Warnf(format, args...)
	}
}

func (m *Meter) errorf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Errorf(format, args...)
	}
}

func (m *Meter) debugw(msg string, fields map[string]any) {
	if m.logger != nil {
		m.logger.Debugw(msg, fields)
	}
}
