// Package dispatch matches pickup requests to free vehicles.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/taxi/core/events"
	"github.com/kilianp07/taxi/core/fleet"
	"github.com/kilianp07/taxi/core/logger"
	"github.com/kilianp07/taxi/core/metrics"
	"github.com/kilianp07/taxi/core/model"
	"github.com/kilianp07/taxi/internal/eventbus"
)

// Dispatch outcomes used for metrics and events.
const (
	OutcomeAssigned     = "assigned"
	OutcomeNoVehicle    = "no_vehicle"
	OutcomeInvalidOrder = "invalid_order"
	OutcomeCanceled     = "canceled"
)

var (
	// ErrInvalidOrder is returned for missing or malformed endpoints.
	ErrInvalidOrder = fmt.Errorf("dispatch: invalid order: %w", model.ErrInvalidInput)
	// ErrNoVehicle is returned when no candidate and driver accept the order.
	ErrNoVehicle = fmt.Errorf("dispatch: no vehicle available: %w", model.ErrNoCapacity)
)

// Fleet is the part of the fleet directory the engine reads and mutates.
type Fleet interface {
	Vehicles(f fleet.Filter) []model.Vehicle
	Drivers() []model.Driver
	DriverFor(vehicleID int) (model.Driver, bool)
	VehicleOf(driverID int) (int, bool)
	CompareAndSetStatus(id int, from, to model.Status) (bool, error)
}

// Candidate is a free vehicle ranked by its distance to the pickup.
type Candidate struct {
	Vehicle  model.Vehicle `json:"vehicle"`
	Distance int           `json:"distance"`
}

// Assignment is the result of a successful dispatch.
type Assignment struct {
	OrderID      string        `json:"order_id"`
	Vehicle      model.Vehicle `json:"vehicle"`
	Driver       model.Driver  `json:"driver"`
	Pickup       model.Address `json:"pickup"`
	Destination  model.Address `json:"destination"`
	Distance     int           `json:"pickup_distance"`
	TripDistance int           `json:"trip_distance"`
	Candidates   int           `json:"candidates"`
}

// Engine ranks free vehicles and negotiates orders with their drivers.
// Dispatch calls are serialized so the read-rank-assign sequence of one
// request never interleaves with another.
type Engine struct {
	fleet         Fleet
	negotiator    Negotiator
	distance      model.DistanceFunc
	maxCandidates int
	mode          string
	logger        logger.Logger
	metrics       metrics.MetricsSink
	bus           eventbus.EventBus
	mu            sync.Mutex
	cfgMu         sync.RWMutex
}

// NewEngine creates a dispatch engine. A nil negotiator selects the in
// process PolicyNegotiator; sink, bus and log may be nil.
func NewEngine(f Fleet, neg Negotiator, cfg Config, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*Engine, error) {
	if f == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if neg == nil {
		neg = PolicyNegotiator{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Engine{
		fleet:         f,
		negotiator:    neg,
		distance:      model.Distance,
		maxCandidates: cfg.MaxCandidates,
		mode:          cfg.Mode,
		logger:        log,
		metrics:       sink,
		bus:           bus,
	}, nil
}

// SetDistanceFunc replaces the distance metric.
func (e *Engine) SetDistanceFunc(fn model.DistanceFunc) {
	if fn == nil {
		return
	}
	e.cfgMu.Lock()
	e.distance = fn
	e.cfgMu.Unlock()
}

func (e *Engine) distanceFunc() model.DistanceFunc {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.distance
}

// FindCandidates returns up to max free vehicles ordered by ascending distance
// to pickup, ties broken by vehicle id. Vehicles without a location are left
// out. A max of zero or less, or above the configured limit, uses the limit.
func (e *Engine) FindCandidates(pickup *model.Address, max int) []Candidate {
	if max <= 0 || max > e.maxCandidates {
		max = e.maxCandidates
	}
	return rank(e.fleet.Vehicles(fleet.StatusFilter(model.StatusFree)), pickup, max, e.distanceFunc())
}

func rank(vehicles []model.Vehicle, pickup *model.Address, max int, dist model.DistanceFunc) []Candidate {
	if pickup == nil {
		return nil
	}
	list := make([]Candidate, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status != model.StatusFree || v.Location == nil {
			continue
		}
		list = append(list, Candidate{Vehicle: v, Distance: dist(pickup, v.Location)})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Distance != list[j].Distance {
			return list[i].Distance < list[j].Distance
		}
		return list[i].Vehicle.ID < list[j].Vehicle.ID
	})
	if len(list) > max {
		list = list[:max]
	}
	return list
}

// Dispatch offers the order to the ranked candidates and assigns the first
// vehicle whose driver accepts. On failure no vehicle is modified.
func (e *Engine) Dispatch(ctx context.Context, pickup, destination *model.Address) (Assignment, error) {
	start := time.Now()
	order := model.Order{ID: uuid.NewString(), Pickup: pickup, Destination: destination}
	if err := order.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		e.finish(order, Assignment{}, 0, OutcomeInvalidOrder, err, start)
		return Assignment{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	dist := e.distanceFunc()
	cands := rank(e.fleet.Vehicles(fleet.StatusFilter(model.StatusFree)), pickup, e.maxCandidates, dist)
	tripDist := dist(pickup, destination)
	e.debugw("ranked candidates", map[string]any{"order_id": order.ID, "candidates": len(cands)})

	for _, c := range cands {
		for _, d := range e.driversFor(c.Vehicle.ID) {
			if err := ctx.Err(); err != nil {
				err = fmt.Errorf("dispatch: %w", err)
				e.finish(order, Assignment{}, len(cands), OutcomeCanceled, err, start)
				return Assignment{}, err
			}
			offer := Offer{
				OrderID:        order.ID,
				VehicleID:      c.Vehicle.ID,
				Driver:         d,
				Pickup:         *pickup,
				Destination:    *destination,
				PickupDistance: c.Distance,
				TripDistance:   tripDist,
			}
			if !e.offer(ctx, offer) {
				continue
			}
			swapped, err := e.fleet.CompareAndSetStatus(c.Vehicle.ID, model.StatusFree, model.StatusEnRouteToCustomer)
			if err != nil || !swapped {
				e.warnf("vehicle %d no longer free for order %s: %v", c.Vehicle.ID, order.ID, err)
				break
			}
			v := c.Vehicle
			v.Status = model.StatusEnRouteToCustomer
			asn := Assignment{
				OrderID:      order.ID,
				Vehicle:      v,
				Driver:       d,
				Pickup:       *pickup,
				Destination:  *destination,
				Distance:     c.Distance,
				TripDistance: tripDist,
				Candidates:   len(cands),
			}
			e.finish(order, asn, len(cands), OutcomeAssigned, nil, start)
			return asn, nil
		}
	}
	e.finish(order, Assignment{}, len(cands), OutcomeNoVehicle, ErrNoVehicle, start)
	return Assignment{}, ErrNoVehicle
}

// driversFor lists who is asked for the vehicle. In roster mode drivers
// operating another vehicle are skipped.
func (e *Engine) driversFor(vehicleID int) []model.Driver {
	if e.mode != ModeRoster {
		d, ok := e.fleet.DriverFor(vehicleID)
		if !ok {
			e.debugw("vehicle has no driver", map[string]any{"vehicle_id": vehicleID})
			return nil
		}
		return []model.Driver{d}
	}
	var res []model.Driver
	for _, d := range e.fleet.Drivers() {
		if vid, paired := e.fleet.VehicleOf(d.ID); paired && vid != vehicleID {
			continue
		}
		res = append(res, d)
	}
	return res
}

func (e *Engine) offer(ctx context.Context, o Offer) bool {
	start := time.Now()
	accepted, err := e.negotiator.Offer(ctx, o)
	lat := time.Since(start)
	if err != nil {
		accepted = false
		if !errors.Is(err, context.Canceled) {
			e.warnf("offer %s to driver %d failed: %v", o.OrderID, o.Driver.ID, err)
		}
	}
	offerLatency.WithLabelValues(strconv.FormatBool(accepted)).Observe(lat.Seconds())
	if e.bus != nil {
		e.bus.Publish(events.OfferEvent{
			OrderID:   o.OrderID,
			VehicleID: o.VehicleID,
			DriverID:  o.Driver.ID,
			Accepted:  accepted,
			Err:       err,
			Latency:   lat,
		})
	}
	if rec, ok := e.metrics.(metrics.OfferRecorder); ok {
		ev := metrics.OfferEvent{
			OrderID:   o.OrderID,
			VehicleID: o.VehicleID,
			DriverID:  o.Driver.ID,
			Accepted:  accepted,
			Latency:   lat,
			Time:      time.Now(),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		if rerr := rec.RecordOffer(ev); rerr != nil {
			e.errorf("offer metrics error: %v", rerr)
		}
	}
	e.debugw("offer answered", map[string]any{
		"order_id":   o.OrderID,
		"vehicle_id": o.VehicleID,
		"driver_id":  o.Driver.ID,
		"accepted":   accepted,
	})
	return accepted
}

func (e *Engine) finish(order model.Order, asn Assignment, cands int, outcome string, err error, start time.Time) {
	dispatchRequests.WithLabelValues(outcome).Inc()
	if outcome != OutcomeInvalidOrder {
		dispatchCandidates.Observe(float64(cands))
	}
	switch outcome {
	case OutcomeAssigned:
		e.infof("order %s assigned to vehicle %d, driver %d (distance %d)", order.ID, asn.Vehicle.ID, asn.Driver.ID, asn.Distance)
	case OutcomeInvalidOrder:
		e.warnf("order %s rejected: %v", order.ID, err)
	default:
		e.infof("order %s: %s after %d candidates", order.ID, outcome, cands)
	}
	if e.bus != nil {
		ev := events.DispatchEvent{
			OrderID:    order.ID,
			VehicleID:  asn.Vehicle.ID,
			DriverID:   asn.Driver.ID,
			Candidates: cands,
			Outcome:    outcome,
			Err:        err,
		}
		if order.Pickup != nil {
			ev.Pickup = order.Pickup.String()
		}
		if order.Destination != nil {
			ev.Destination = order.Destination.String()
		}
		e.bus.Publish(ev)
	}
	if mErr := e.metrics.RecordDispatch(metrics.DispatchEvent{
		OrderID:    order.ID,
		VehicleID:  asn.Vehicle.ID,
		DriverID:   asn.Driver.ID,
		Candidates: cands,
		Outcome:    outcome,
		Duration:   time.Since(start),
		Time:       time.Now(),
	}); mErr != nil {
		e.errorf("metrics error: %v", mErr)
	}
}

func (e *Engine) infof(format string, args ...any) {
	if e.logger != nil {
		e.logger.Infof(format, args...)
	}
}

func (e *Engine) warnf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Warnf(format, args...)
	}
}

func (e *Engine) errorf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Errorf(format, args...)
	}
}

func (e *Engine) debugw(msg string, fields map[string]any) {
	if e.logger != nil {
		e.logger.Debugw(msg, fields)
	}
}
